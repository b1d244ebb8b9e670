package ac3

// table518 is ATSC A/52 Table 5.18: for each frmsizecod, the syncframe
// length in 16-bit words at each of the three sample rates.
type table518Entry struct {
	frmsizecod uint32
	fs32       int
	fs44       int
	fs48       int
}

var table518 = [...]table518Entry{
	{0x00, 96, 69, 64},
	{0x01, 96, 70, 64},
	{0x02, 120, 87, 80},
	{0x03, 120, 88, 80},
	{0x04, 144, 104, 96},
	{0x05, 144, 105, 96},
	{0x06, 168, 121, 112},
	{0x07, 168, 122, 112},
	{0x08, 192, 139, 128},
	{0x09, 192, 140, 128},
	{0x0a, 240, 174, 160},
	{0x0b, 240, 175, 160},
	{0x0c, 288, 208, 192},
	{0x0d, 288, 209, 192},
	{0x0e, 336, 243, 224},
	{0x0f, 336, 244, 224},
	{0x10, 384, 278, 256},
	{0x11, 384, 279, 256},
	{0x12, 480, 348, 320},
	{0x13, 480, 349, 320},
	{0x14, 576, 417, 384},
	{0x15, 576, 418, 384},
	{0x16, 672, 487, 448},
	{0x17, 672, 488, 448},
	{0x18, 768, 557, 512},
	{0x19, 768, 558, 512},
	{0x1a, 960, 696, 640},
	{0x1b, 960, 697, 640},
	{0x1c, 1152, 835, 768},
	{0x1d, 1152, 836, 768},
	{0x1e, 1344, 975, 896},
	{0x1f, 1344, 976, 896},
	{0x20, 1536, 1114, 1024},
	{0x21, 1536, 1115, 1024},
	{0x22, 1728, 1253, 1152},
	{0x23, 1728, 1254, 1152},
	{0x24, 1920, 1393, 1280},
	{0x25, 1920, 1394, 1280},
}

// lookupTable518 returns the Table 5.18 row for frmsizecod, and false if
// frmsizecod does not index a defined row (0x26..0x3f are reserved).
func lookupTable518(frmsizecod uint32) (table518Entry, bool) {
	if int(frmsizecod) >= len(table518) {
		return table518Entry{}, false
	}
	e := table518[frmsizecod]
	return e, e.frmsizecod == frmsizecod
}

// wordsPerSyncframe returns the Table 5.18 word count for the given fscod
// (0=48kHz, 1=44.1kHz, 2=32kHz) and frmsizecod, and false if either field
// is out of range.
func wordsPerSyncframe(fscod, frmsizecod uint32) (int, bool) {
	e, ok := lookupTable518(frmsizecod)
	if !ok {
		return 0, false
	}
	switch fscod {
	case 0:
		return e.fs48, true
	case 1:
		return e.fs44, true
	case 2:
		return e.fs32, true
	default:
		return 0, false
	}
}
