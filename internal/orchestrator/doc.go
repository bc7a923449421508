// Package orchestrator drives multi-domain scans.
//
// A run prechecks every domain over DNS, then scans the reachable ones in
// rounds. Each round runs a bounded worker pool; domains that fail are
// retried in the next round with a larger tool timeout, and only the first
// round may use cached assessments. Inside a worker, rate-limit failures are
// retried with exponential backoff before the failure is surfaced.
//
// Progress is reported as stream events. Cancellation is cooperative: the
// control loop checks the request's flag before every round and after every
// completed domain.
package orchestrator
