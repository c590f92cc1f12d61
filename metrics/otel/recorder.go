// Package otel records engine counters on an OpenTelemetry meter.
//
// The caller owns the MeterProvider and its exporters. [NewRecorder] only
// creates instruments on the supplied meter.
package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adrijan-Petek/miniapp-admin-kit/metrics"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil audit dropped source")
)

// Recorder implements adminkit.MetricsRecorder on OTel Int64Counters.
type Recorder struct {
	logins       metric.Int64Counter
	issued       metric.Int64Counter
	verified     metric.Int64Counter
	logouts      metric.Int64Counter
	accessDenied metric.Int64Counter

	registration metric.Registration
}

// NewRecorder creates the engine instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	r := &Recorder{}
	defs := []struct {
		dst  *metric.Int64Counter
		name string
		help string
	}{
		{&r.logins, "adminkit.login", "Admin login attempts by outcome."},
		{&r.issued, "adminkit.session.issued", "Session tokens issued by role."},
		{&r.verified, "adminkit.session.verify", "Session token verifications by result."},
		{&r.logouts, "adminkit.logout", "Logouts of a valid session."},
		{&r.accessDenied, "adminkit.access.denied", "Authorization refusals by resource."},
	}
	for _, d := range defs {
		c, err := meter.Int64Counter(d.name, metric.WithDescription(d.help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", d.name, err)
		}
		*d.dst = c
	}
	return r, nil
}

// ObserveAuditDropped registers an observable counter reading src on every
// collection. Close unregisters it.
func (r *Recorder) ObserveAuditDropped(meter metric.Meter, src metrics.DroppedSource) error {
	if meter == nil {
		return ErrNilMeter
	}
	if src == nil {
		return ErrNilSource
	}
	dropped, err := meter.Int64ObservableCounter(
		"adminkit.audit.dropped",
		metric.WithDescription("Audit events dropped because the dispatch buffer was full."),
	)
	if err != nil {
		return fmt.Errorf("create audit dropped counter: %w", err)
	}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(dropped, int64(src.AuditDropped()))
		return nil
	}, dropped)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}
	r.registration = reg
	return nil
}

// Close unregisters the audit dropped callback, if any.
func (r *Recorder) Close() error {
	if r == nil || r.registration == nil {
		return nil
	}
	return r.registration.Unregister()
}

func (r *Recorder) LoginAttempt(outcome string) {
	r.logins.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *Recorder) SessionIssued(role permission.Role) {
	r.issued.Add(context.Background(), 1, metric.WithAttributes(attribute.String("role", string(role))))
}

func (r *Recorder) SessionVerified(ok bool) {
	result := "invalid"
	if ok {
		result = "valid"
	}
	r.verified.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

func (r *Recorder) Logout() {
	r.logouts.Add(context.Background(), 1)
}

func (r *Recorder) AccessDenied(resource string) {
	r.accessDenied.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("resource", metrics.ResourceLabel(resource))))
}
