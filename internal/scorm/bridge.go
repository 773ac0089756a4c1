package scorm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Element keys are namespaced "<prefix>_<lessonID>_<element>" in the store.
const keyPrefix = "scorm"

// Tracked elements with host-side behavior. Everything else is stored
// verbatim and otherwise ignored.
const (
	elementLessonStatus = "cmi.core.lesson_status"
	elementScoreRaw     = "cmi.core.score.raw"
)

// Runtime is the fixed-shape legacy content-tracking interface. Embedded
// lesson packages call these eight operations and nothing else; all eight
// must exist even where they do nothing. Calls are synchronous and never
// fail — failure is represented by the fixed legacy return values.
type Runtime interface {
	Initialize(arg string) string
	Finish(arg string) string
	GetValue(element string) string
	SetValue(element, value string) string
	Commit(arg string) string
	GetLastError() string
	GetErrorString(code string) string
	GetDiagnostic(code string) string
}

// Bridge implements Runtime for one lesson over a selected element store,
// relaying completion and score writes to host callbacks.
type Bridge struct {
	lessonID   string
	store      ElementStore
	onComplete func()
	onProgress func(score float64)
}

// NewBridge builds a bridge for the lesson. Nil callbacks are allowed.
func NewBridge(lessonID string, store ElementStore, onComplete func(), onProgress func(float64)) *Bridge {
	return &Bridge{
		lessonID:   lessonID,
		store:      store,
		onComplete: onComplete,
		onProgress: onProgress,
	}
}

// LessonID returns the lesson this bridge tracks.
func (b *Bridge) LessonID() string {
	return b.lessonID
}

func (b *Bridge) key(element string) string {
	return fmt.Sprintf("%s_%s_%s", keyPrefix, b.lessonID, element)
}

// Initialize always reports success.
func (b *Bridge) Initialize(string) string {
	return "true"
}

// Finish reports success and fires the completion callback.
func (b *Bridge) Finish(string) string {
	if b.onComplete != nil {
		b.onComplete()
	}
	return "true"
}

// GetValue returns the stored element value, or "" when absent.
func (b *Bridge) GetValue(element string) string {
	v, ok := b.store.Get(b.key(element))
	if !ok {
		return ""
	}
	return v
}

// SetValue stores the element and always reports success. A completed or
// passed lesson status fires the completion callback; a raw score fires the
// progress callback with the parsed value. Malformed scores parse to NaN
// and are passed through uninterpreted.
func (b *Bridge) SetValue(element, value string) string {
	b.store.Set(b.key(element), value)

	switch element {
	case elementLessonStatus:
		status := strings.ToLower(strings.TrimSpace(value))
		if (status == "completed" || status == "passed") && b.onComplete != nil {
			b.onComplete()
		}
	case elementScoreRaw:
		score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			score = math.NaN()
		}
		if b.onProgress != nil {
			b.onProgress(score)
		}
	}
	return "true"
}

// Commit is a no-op required by the legacy protocol.
func (b *Bridge) Commit(string) string {
	return "true"
}

// GetLastError always reports no error.
func (b *Bridge) GetLastError() string {
	return "0"
}

// GetErrorString is a no-op required by the legacy protocol.
func (b *Bridge) GetErrorString(string) string {
	return ""
}

// GetDiagnostic is a no-op required by the legacy protocol.
func (b *Bridge) GetDiagnostic(string) string {
	return ""
}

var _ Runtime = (*Bridge)(nil)
