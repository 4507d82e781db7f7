package domain

import "strings"

type ABCClass string

const (
	ABCClassA ABCClass = "A"
	ABCClassB ABCClass = "B"
	ABCClassC ABCClass = "C"
)

var abcEncodings = map[ABCClass]float64{
	ABCClassA: 0,
	ABCClassB: 1,
	ABCClassC: 2,
}

// Encoding returns the numeric feature value used for the class.
func (c ABCClass) Encoding() float64 {
	if enc, ok := abcEncodings[c]; ok {
		return enc
	}
	return abcEncodings[ABCClassC]
}

// ParseABCClass returns the class for a label (case-insensitive).
func ParseABCClass(label string) (ABCClass, bool) {
	switch ABCClass(strings.ToUpper(strings.TrimSpace(label))) {
	case ABCClassA:
		return ABCClassA, true
	case ABCClassB:
		return ABCClassB, true
	case ABCClassC:
		return ABCClassC, true
	}
	return "", false
}
