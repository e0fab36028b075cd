// Package mock provides a test double for ai.Answerer.
//
// # Usage in Tests
//
//	answerer := mock.NewMockAnswerer()
//	answerer.AnswerFunc = func(ctx context.Context, q string, sources []ai.Source) (string, error) {
//	    return "fixed answer", nil
//	}
//
//	count := answerer.CallCount()
//
// # Default Behavior
//
// Without AnswerFunc the mock echoes the question and the ID of every
// source, which lets tests assert what the engine handed over.
package mock
