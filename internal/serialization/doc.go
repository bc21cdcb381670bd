// Package serialization implements the text format used to dump and reload
// layer parameters.
//
// A dump is one tagged block:
//
//	#Kernels            <- tag line
//	6	5	5             <- dimension line (1, 2 or 3 tab-separated counts)
//	0.1	-0.2	...       <- tab-separated rows
//
// One-dimensional blocks put every value on a single line. Two-dimensional
// blocks emit one line per row. Three-dimensional blocks emit one line per
// row and an empty line after each depth slice.
//
// Only #Kernels, #Weights and #Biases can be loaded back; the other tags
// (#Inputs, #Output, ...) are diagnostic dumps.
//
// Example usage:
//
//	text := serialization.Format(serialization.Weights, []int{784, 32}, weights)
//
//	kind, values, err := serialization.LoadFile("fc1_weight.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := layer.SetWeights(values); err != nil {
//	    log.Fatal(err)
//	}
package serialization
