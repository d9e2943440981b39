package interp

import (
	"context"

	"github.com/vibelang/vibe/internal/hosteval"
	"github.com/vibelang/vibe/internal/provider"
	"github.com/vibelang/vibe/internal/verr"
)

// UserInputFunc supplies interactive input for an `ask` suspension. The
// driver calls it synchronously; a CLI front-end typically reads a line
// from stdin, a test harness returns a canned string.
type UserInputFunc func(ctx context.Context, prompt string) (string, error)

// Driver wires the pure interp.Runtime state machine to the collaborators
// that perform its suspended effects: an AI provider, a tool dispatcher
// (resolved per-call through the runtime's own PendingAI.ToolsView, so the
// driver never needs its own registry reference), a host-code evaluator,
// and an interactive input source. Apart from VibeTool.Execute, which
// evaluates a Vibe tool's ts(...) body through Runtime.HostEval, it is the
// only code in this package that touches context.Context or performs I/O.
type Driver struct {
	Provider provider.Provider
	HostEval *hosteval.Evaluator
	AskUser  UserInputFunc
}

// RunToCompletion steps rt, performing whichever suspended effect it asks
// for and feeding the outcome back, until it reaches completed or failed.
func (d *Driver) RunToCompletion(ctx context.Context, rt *Runtime) *verr.Error {
	rt.Run()
	for {
		switch rt.Status {
		case StatusCompleted, StatusFailed:
			return rt.Err
		case StatusAwaitingAI:
			if err := d.driveAI(ctx, rt); err != nil {
				return err
			}
		case StatusAwaitingTool:
			if err := d.driveTool(ctx, rt); err != nil {
				return err
			}
		case StatusAwaitingUser:
			if err := d.driveUser(ctx, rt); err != nil {
				return err
			}
		case StatusAwaitingTS:
			if err := d.driveTS(ctx, rt); err != nil {
				return err
			}
		default:
			return verr.New(verr.KindInternal, verr.Location{}, "driver observed unexpected status %q", rt.Status)
		}
		rt.Run()
	}
}

func (d *Driver) driveAI(ctx context.Context, rt *Runtime) *verr.Error {
	resp, err := d.Provider.Execute(ctx, rt.PendingAI.Request)
	if err != nil {
		rt.fail(verr.Wrap(verr.KindAI, verr.Location{}, err, "ai provider call failed"))
		return rt.Err
	}
	return rt.ResumeWithAIResponse(resp)
}

func (d *Driver) driveTool(ctx context.Context, rt *Runtime) *verr.Error {
	pt := rt.PendingTool
	registry := rt.PendingAI.ToolsView
	result, err := registry.Dispatch(ctx, pt.Name, pt.Args)
	if err != nil {
		return rt.ResumeWithToolResult(ToolOutcome{Err: err.Error()})
	}
	return rt.ResumeWithToolResult(ToolOutcome{Output: result.Output, Err: result.Err})
}

func (d *Driver) driveUser(ctx context.Context, rt *Runtime) *verr.Error {
	text, err := d.AskUser(ctx, rt.PendingUser.Prompt)
	if err != nil {
		rt.fail(verr.Wrap(verr.KindCancelled, verr.Location{}, err, "user input was not supplied"))
		return rt.Err
	}
	return rt.ResumeWithUserInput(text)
}

func (d *Driver) driveTS(ctx context.Context, rt *Runtime) *verr.Error {
	pt := rt.PendingTS
	result, failure := d.HostEval.Eval(ctx, hosteval.Request{Params: pt.Params, ParamValues: pt.ParamValues, Body: pt.Body})
	if failure != nil {
		return rt.ResumeWithTsValue(nil, failure.Error())
	}
	return rt.ResumeWithTsValue(result.Value, "")
}
