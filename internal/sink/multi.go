package sink

import "errors"

// Multi fans every frame out to all of its sinks
type Multi []Sink

// Send delivers f to each sink, a failing sink does not stop the others
func (m Multi) Send(f *Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
