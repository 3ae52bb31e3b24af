// Package model evaluates pre-trained tree-ensemble models and feature
// scalers. Training happens elsewhere; this package only runs inference over
// deserialized artifacts.
package model

// Model is a deserialized predictor evaluated over a single ordered feature
// row. Classifiers return the class code as a float; the dispatcher decides
// how to decode it.
type Model interface {
	// Predict evaluates the model for one input row.
	Predict(row []float64) (float64, error)
	// NumFeatures is the input width the model was trained with.
	NumFeatures() int
}
