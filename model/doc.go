// Package model defines the shared data types of the retrieval engine:
// chunks, scored results, ranking lists and fusion results.
package model
