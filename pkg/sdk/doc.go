// Package catalograg embeds the catalog question-answering engine in a Go
// program, without running the HTTP API.
//
// The client keeps an in-memory similarity index of catalog products,
// refreshes it from the catalog service on a schedule and answers questions
// with a language model, falling back to a templated answer when the model
// is not configured, times out or fails.
//
// # Catalog-backed
//
//	client, _ := catalograg.New(ctx,
//	    catalograg.WithCatalog("http://catalog:8000/api/v1"),
//	    catalograg.WithCompleter(myLLM, "gpt-4o-mini"),
//	)
//	defer client.Close()
//	fmt.Println(client.Answer(ctx, "un casque sans fil pas cher ?"))
//
// # Offline
//
//	client, _ := catalograg.New(ctx)
//	client.Load(items)
//	top := client.Recommend(ctx, "populaire", 5)
package catalograg
