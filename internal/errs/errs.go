// Package errs classifies failures into a three-way taxonomy: transient
// transport errors (retried with bounded attempts), data absence (logged at
// warning, operation skipped), and fatal errors (propagated to the
// Supervisor, which exits non-zero). Store errors are wrapped as Transient
// so the per-block contract's retry budget covers them too.
package errs

import "github.com/pkg/errors"

// Transient marks an error as worth retrying (RPC timeout, connect failure,
// subscription drop, store I/O contention).
type Transient struct{ cause error }

func NewTransient(cause error) *Transient { return &Transient{cause: cause} }
func (e *Transient) Error() string        { return "transient: " + e.cause.Error() }
func (e *Transient) Unwrap() error        { return e.cause }
func (e *Transient) Is(target error) bool { _, ok := target.(*Transient); return ok }

// DataAbsence marks an error that should be logged at warning and the
// triggering operation skipped — it never aborts the pipeline or retries.
type DataAbsence struct{ cause error }

func NewDataAbsence(cause error) *DataAbsence { return &DataAbsence{cause: cause} }
func (e *DataAbsence) Error() string          { return "data absence: " + e.cause.Error() }
func (e *DataAbsence) Unwrap() error          { return e.cause }
func (e *DataAbsence) Is(target error) bool   { _, ok := target.(*DataAbsence); return ok }

// Fatal marks an unrecoverable error (corrupt database, missing schema) that
// the Supervisor should log and exit non-zero on, with no silent degradation.
type Fatal struct{ cause error }

func NewFatal(cause error) *Fatal       { return &Fatal{cause: cause} }
func (e *Fatal) Error() string          { return "fatal: " + e.cause.Error() }
func (e *Fatal) Unwrap() error          { return e.cause }
func (e *Fatal) Is(target error) bool   { _, ok := target.(*Fatal); return ok }

// IsTransient reports whether err (or something it wraps) is Transient.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// IsFatal reports whether err (or something it wraps) is Fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}
