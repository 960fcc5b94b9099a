// Package mock provides in-process stand-ins for ai.Embedder, ai.Generator
// and ai.AIProvider so ingestion, search and chat can be tested without a
// model server.
//
// By default MockEmbedder maps each text to a deterministic unit vector
// derived from its hash, and MockGenerator streams DefaultAnswer word by
// word. Either can be overridden:
//
//	emb := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, ai.ErrProviderConnection
//	})
//	gen := mock.NewMockGenerator().WithChunks("The ", "answer.")
//	provider := mock.NewMockProviderWithServices(emb, gen)
//
// Both record their calls for assertions.
package mock
