// Package herdask embeds the livestock listing assistant in a Go process
// backed by Valkey or Redis.
//
// The client wires the same pipeline the HTTP server runs: per-caller
// admission, answer cache, hybrid listing ranking and a generation model.
// Embedding and generation providers are supplied by the caller.
//
//	client, err := herdask.New(ctx,
//	    herdask.WithValkey("localhost:6379", ""),
//	    herdask.WithEmbedder(embedder),
//	    herdask.WithGenerator(generator),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	reply, _ := client.Ask(ctx, "farmer-42", "murrah buffalo in chitwan under 100000")
//	fmt.Println(reply.Text)
//
//	recs, _ := client.Recommend(ctx, "dairy goat", 5)
package herdask
