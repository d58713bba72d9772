// Package filters implements the standard PDF stream filters.
//
// Every decoder takes the raw stream bytes and returns the decoded bytes.
// Those that read /DecodeParms take them as [Params], a map of plain Go
// values:
//
//	out, err := filters.FlateDecode(data, filters.Params{"Predictor": 12, "Columns": 5})
//
// Supported filters:
//
//   - FlateDecode and LZWDecode, both with TIFF (2) and PNG (10-15)
//     predictors for 1, 2, 4, 8 and 16 bits per component
//   - ASCIIHexDecode and ASCII85Decode
//   - RunLengthDecode
//   - CCITTFaxDecode, through golang.org/x/image/ccitt
//
// Image codecs such as DCTDecode and JPXDecode are not decoded here; their
// data is passed through by the caller.
package filters
