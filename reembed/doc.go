// Package reembed recomputes the embedding of every stored chunk with the
// current embedding model. Run it after changing the embedding model so that
// stored vectors and query vectors come from the same model.
package reembed
