// Package nndescent builds approximate k-nearest-neighbor graphs by nearest
// neighbor descent: starting from a random (or supplied) neighbor graph, it
// repeatedly cross-evaluates sampled candidate neighborhoods, propagating
// improvements to both endpoints until the graph stabilizes. It also queries
// new points against a pre-built reference graph, merges graphs, and prunes
// them by degree or occlusion.
//
// Basic usage:
//
//	result, err := nndescent.Build(ctx, data, 15, "euclidean",
//	    nndescent.WithParallel(runtime.NumCPU()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	idx, dist := result.Graph.Row(0) // nearest neighbors of point 0
//
// Supported metrics: euclidean, l2 (squared euclidean), cosine, manhattan
// and hamming. The algorithm is approximate; with default settings recall
// against exact search is typically well above 90%.
package nndescent
