package pdn

// Fuzz is a go-fuzz entry point exercising the full Open path: envelope
// detection, NRBF decoding, MemoryBlock reassembly and materialization.
func Fuzz(data []byte) int {
	doc, err := OpenBytes(data, nil)
	if err != nil {
		return 0
	}
	if doc == nil {
		return 0
	}
	return 1
}
