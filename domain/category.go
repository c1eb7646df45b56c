// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "fmt"

// Category is one of the two training labels.
type Category string

const (
	Ham  = Category("ham")
	Spam = Category("spam")
)

var Categories = []Category{Ham, Spam}

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case Ham:
		return Ham, nil
	case Spam:
		return Spam, nil
	}

	return "", fmt.Errorf("unsupported category %q, expected ham or spam", s)
}

func (c Category) String() string {
	return string(c)
}
