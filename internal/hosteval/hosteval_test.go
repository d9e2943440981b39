package hosteval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEval_NoRuntimeAvailable(t *testing.T) {
	e := &Evaluator{Runtime: &Runtime{}, DefaultTimeout: time.Second}
	_, failure := e.Eval(context.Background(), Request{Params: []string{"x"}, Body: "return x + 1"})
	assert.NotNil(t, failure)
	assert.Equal(t, FailureRuntime, failure.Kind)
}

func TestRuntime_IsTsxReady_StaticallyAvailable(t *testing.T) {
	r := &Runtime{TsxAvailable: true}
	assert.True(t, r.IsTsxReady())
}

func TestRuntime_IsTsxReady_NoInstallAttempted(t *testing.T) {
	r := &Runtime{}
	assert.False(t, r.IsTsxReady())
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Kind: FailureCompile, Message: "unexpected token"}
	assert.Equal(t, "compile: unexpected token", f.Error())
}
