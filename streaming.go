package tutor

import (
	"iter"
	"strings"
)

// FragmentStream is a lazy, finite sequence of text fragments produced by a provider.
//
// Each element is either a non-empty fragment with a nil error, or a terminal
// error after which the stream yields nothing more. Fragments already yielded
// before an error stay valid.
type FragmentStream = iter.Seq2[string, error]

// FragmentsOf returns a stream that yields the given fragments in order and then
// err, if err is non-nil. Empty fragments are skipped.
func FragmentsOf(fragments []string, err error) FragmentStream {
	return func(yield func(string, error) bool) {
		for _, f := range fragments {
			if f == "" {
				continue
			}
			if !yield(f, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

// ErrorStream returns a stream that fails immediately with err.
func ErrorStream(err error) FragmentStream {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}

// CollectFragments drains a stream and returns the concatenated text.
// On failure it returns the text accumulated so far together with the error.
func CollectFragments(stream FragmentStream) (string, error) {
	var sb strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}
