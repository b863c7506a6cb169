package preview

// ConvertPixel turns a pixel read back from the device (RGBA bytes, red in
// the low byte) into a packed ARGB display pixel. The red and blue channels
// swap places; alpha and green are preserved.
func ConvertPixel(p uint32) uint32 {
	red := p & 0xff
	green := (p >> 8) & 0xff
	blue := (p >> 16) & 0xff
	alpha := (p >> 24) & 0xff
	return alpha<<24 | red<<16 | green<<8 | blue
}

// ConvertIndex maps a linear pixel index on a bottom-up device surface to
// the matching index on a top-down display surface of the same size.
func ConvertIndex(index, width, height int) int {
	col := index % width
	line := index / width
	return (height-line-1)*width + col
}

// convertFrame applies ConvertPixel and ConvertIndex to a whole device
// frame.
func convertFrame(src []uint32, width, height int) []uint32 {
	dst := make([]uint32, len(src))
	for i, p := range src {
		dst[ConvertIndex(i, width, height)] = ConvertPixel(p)
	}
	return dst
}
