package adapter

import "context"

type completeFunc func(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error)

// streamOnce performs a buffered completion and replays it as a single
// terminal update. The returned channel is already closed after that update.
func streamOnce(ctx context.Context, complete completeFunc, messages []ChatMessage, opts *GenerationOptions) (<-chan StreamUpdate, error) {
	result, err := complete(ctx, messages, opts)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamUpdate, 1)
	ch <- StreamUpdate{
		Delta:  result.AssistantText,
		Done:   true,
		Result: &result,
	}
	close(ch)
	return ch, nil
}
