package notify

import "time"

// decide applies the retry and failure policy to a dispatch outcome and
// returns the record's next status. For retries it also returns the
// not-before timestamp gating the next claim.
//
// State machine per claimed record:
//
//	processing --success, receipt confirmed--> delivered
//	processing --success, no receipt--------> sent
//	processing --permanent failure----------> failed
//	processing --transient, budget left-----> pending (with backoff)
//	processing --transient, budget spent----> failed
func (p *Processor) decide(n Notification, confirmed bool, err error) (Status, time.Time) {
	if err == nil {
		if confirmed {
			return StatusDelivered, time.Time{}
		}
		return StatusSent, time.Time{}
	}

	if IsPermanent(err) {
		return StatusFailed, time.Time{}
	}

	// The attempt being decided counts against the budget.
	if n.Attempts+1 >= n.MaxAttempts {
		return StatusFailed, time.Time{}
	}

	return StatusPending, time.Now().Add(p.backoff(n.Attempts))
}

// backoff computes the retry delay after the given number of prior
// attempts: base doubled per attempt, capped at the ceiling.
func (p *Processor) backoff(attempts int8) time.Duration {
	// Cap the exponent so the shift cannot overflow before the ceiling applies.
	exp := attempts
	if exp > 16 {
		exp = 16
	}
	d := p.backoffBase << exp
	if d > p.backoffCeiling || d <= 0 {
		d = p.backoffCeiling
	}
	return d
}
