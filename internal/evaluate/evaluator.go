// Package evaluate decides whether an instance is under-utilised.
//
// The evaluator never calls AWS directly; the only external input it needs,
// the core count used to derive a dynamic threshold, comes through the
// CoreCounter interface.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
)

// dynamicBudgetPercent is divided by the core count to derive a threshold.
const dynamicBudgetPercent = 90.0

// CoreCounter resolves the default core count of an EC2 instance type.
type CoreCounter interface {
	DefaultCores(ctx context.Context, instanceType string) (int32, error)
}

// Evaluator compares samples against the run threshold.
//
// In dynamic mode the threshold is derived from the core count of the first
// instance evaluated successfully and then frozen for the rest of the run.
// Later instances with a different class reuse the frozen value.
// An Evaluator is single-run state and is not safe for concurrent use.
type Evaluator struct {
	spec      models.KindSpec
	threshold float64
	dynamic   bool
	cores     CoreCounter

	frozen *float64
}

// New returns an Evaluator. cores may be nil when dynamic is false.
func New(spec models.KindSpec, threshold float64, dynamic bool, cores CoreCounter) *Evaluator {
	return &Evaluator{
		spec:      spec,
		threshold: threshold,
		dynamic:   dynamic,
		cores:     cores,
	}
}

// Dynamic reports whether the evaluator derives its threshold from cores.
func (e *Evaluator) Dynamic() bool { return e.dynamic }

// Frozen returns the derived threshold once dynamic mode has fixed it.
func (e *Evaluator) Frozen() (float64, bool) {
	if e.frozen == nil {
		return 0, false
	}
	return *e.frozen, true
}

// Evaluate builds the sample for desc and reports whether it is a finding.
// An error means the threshold could not be determined for this instance; no
// state is changed in that case.
func (e *Evaluator) Evaluate(ctx context.Context, desc models.InstanceDescriptor, p99 float64) (models.UtilizationSample, bool, error) {
	threshold, err := e.effectiveThreshold(ctx, desc)
	if err != nil {
		return models.UtilizationSample{}, false, err
	}

	sample := models.UtilizationSample{
		InstanceID:         desc.ID,
		InstanceClass:      desc.InstanceClass,
		P99CPUPercent:      p99,
		EffectiveThreshold: threshold,
	}
	return sample, Underutilised(p99, threshold), nil
}

func (e *Evaluator) effectiveThreshold(ctx context.Context, desc models.InstanceDescriptor) (float64, error) {
	if !e.dynamic {
		return e.threshold, nil
	}
	if e.frozen != nil {
		return *e.frozen, nil
	}
	if e.cores == nil {
		return 0, errors.New("dynamic threshold requires a core counter")
	}

	instanceType := strings.TrimPrefix(desc.InstanceClass, e.spec.ClassPrefix)
	cores, err := e.cores.DefaultCores(ctx, instanceType)
	if err != nil {
		return 0, fmt.Errorf("derive threshold for %s (%s): %w", desc.ID, desc.InstanceClass, err)
	}

	derived := dynamicBudgetPercent / float64(cores)
	e.frozen = &derived
	return derived, nil
}

// Underutilised compares the integer parts of p99 and threshold, so 10.9%
// against a 10% threshold is still a finding.
func Underutilised(p99, threshold float64) bool {
	return math.Trunc(p99) <= math.Trunc(threshold)
}
