// Package codec translates between raw parameter bytes and typed values.
//
// A parameter's wire form is described by its model.Datum: the encoding
// fixes the width (1, 2 or 4 bytes for integers, 1 byte for Boolean,
// arbitrary UTF-8 for String), the byte order applies to multi-byte
// integers only, and integer values pass through the affine transform
//
//	logical = raw*Scalar + Offset
//	raw     = (logical - Offset) / Scalar   (truncating)
//
// Decode and Encode never fail. "No data" is the kind's zero value and
// "do not write" is an empty buffer, so callers can treat both uniformly.
// DecodeChecked and CheckWidth expose short buffers for callers that need
// to tell a corrupt read apart from an empty one.
package codec
