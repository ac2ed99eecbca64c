package helper

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// method to convert from seconds to minutes:seconds.milliseconds
func SecondsToMinutes(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "-"
	}
	minutes := int(seconds / 60)
	seconds = seconds - float64(minutes*60)
	milliseconds := int(math.Round((seconds - float64(int(seconds))) * 1000))
	if milliseconds == 1000 {
		milliseconds = 0
		seconds++
		if int(seconds) == 60 {
			seconds = 0
			minutes++
		}
	}
	return fmt.Sprintf("%02d:%02d.%03d", minutes, int(seconds), milliseconds)
}

// FormatDeviation prints a rolling deviation in seconds, "-" when it is undefined.
func FormatDeviation(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "-"
	}
	return fmt.Sprintf("%.3fs", value)
}

// DriverCode builds a three letter code from a driver name: the first letter of
// the given name and the first two letters of the surname.
func DriverCode(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	if len(words) == 0 {
		return ""
	}
	first := []rune(words[0])
	code := string(first[0])
	if len(words) > 1 {
		last := []rune(words[len(words)-1])
		if len(last) > 2 {
			code += string(last[:2])
		} else {
			code += string(last)
		}
	} else {
		// single word: the first three letters of it
		if len(first) > 2 {
			code += string(first[1:3])
		} else {
			code += string(first[1:])
		}
	}
	return strings.ToUpper(code)
}
