package executor

import "errors"

// Report collects the outcomes of one Run in unit order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes whose unit failed.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Degraded reports whether any unit failed.
func (r Report) Degraded() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// Err joins every unit error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the outcome for the named category.
func (r Report) Lookup(category string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Category == category {
			return o, true
		}
	}
	return Outcome{}, false
}
