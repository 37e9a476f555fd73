// Package gesture reduces hand skeletons to discrete, temporally stable gesture labels.
package gesture

import (
	"errors"
	"fmt"
)

// Label is a member of the closed gesture vocabulary.
type Label string

const (
	None       Label = "none"
	OpenPalm   Label = "open_palm"
	Fist       Label = "fist"
	Pinch      Label = "pinch"
	Point      Label = "point"
	TwoFinger  Label = "two_finger"
	ThumbsUp   Label = "thumbs_up"
	SwipeLeft  Label = "swipe_left"
	SwipeRight Label = "swipe_right"
)

// ErrUnknownLabel is returned when parsing an identifier outside the vocabulary.
var ErrUnknownLabel = errors.New("unknown gesture")

var vocabulary = []Label{OpenPalm, Fist, Pinch, Point, TwoFinger, ThumbsUp, SwipeLeft, SwipeRight}

// Labels returns every assignable gesture in display order. None is excluded.
func Labels() []Label {
	out := make([]Label, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// ParseLabel converts an identifier to a Label.
func ParseLabel(s string) (Label, error) {
	if Label(s) == None {
		return None, nil
	}
	for _, l := range vocabulary {
		if string(l) == s {
			return l, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// IsMotion reports whether the label is detected from hand travel rather
// than hand pose.
func (l Label) IsMotion() bool {
	return l == SwipeLeft || l == SwipeRight
}

func (l Label) String() string {
	return string(l)
}
