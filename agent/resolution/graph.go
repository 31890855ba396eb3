package resolution

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	intakenode "github.com/prachk/cardvoice-resolution-agent/agent/nodes"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
)

func (s *Service) compileIntakeGraph(
	ctx context.Context,
) (compose.Runnable[intakenode.IntakeInput, *statex.Session], error) {
	graph := compose.NewGraph[intakenode.IntakeInput, *statex.Session]()

	if err := graph.AddLambdaNode("validate_intake",
		compose.InvokableLambda(func(ctx context.Context, in intakenode.IntakeInput) (*intakenode.IntakeState, error) {
			return intakenode.ValidateIntake(in, s.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_intake: %w", err)
	}

	if err := graph.AddLambdaNode("transcribe_audio",
		compose.InvokableLambda(func(ctx context.Context, in *intakenode.IntakeState) (*intakenode.IntakeState, error) {
			return intakenode.TranscribeAudio(ctx, in, s.stt)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node transcribe_audio: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_customer",
		compose.InvokableLambda(func(ctx context.Context, in *intakenode.IntakeState) (*intakenode.IntakeState, error) {
			return intakenode.ResolveCustomer(ctx, in, s.dir)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_customer: %w", err)
	}

	if err := graph.AddLambdaNode("classify_issue",
		compose.InvokableLambda(func(ctx context.Context, in *intakenode.IntakeState) (*intakenode.IntakeState, error) {
			return intakenode.ClassifyIssue(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_issue: %w", err)
	}

	if err := graph.AddLambdaNode("create_session",
		compose.InvokableLambda(func(ctx context.Context, in *intakenode.IntakeState) (*intakenode.IntakeState, error) {
			return intakenode.CreateSession(ctx, in, s.store, s.newID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node create_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_intake",
		compose.InvokableLambda(func(ctx context.Context, in *intakenode.IntakeState) (*statex.Session, error) {
			return intakenode.FinalizeIntake(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_intake: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_intake"},
		{"validate_intake", "transcribe_audio"},
		{"transcribe_audio", "resolve_customer"},
		{"resolve_customer", "classify_issue"},
		{"classify_issue", "create_session"},
		{"create_session", "finalize_intake"},
		{"finalize_intake", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("resolution.voice_intake"))
	if err != nil {
		return nil, fmt.Errorf("compile intake graph: %w", err)
	}
	return runner, nil
}
