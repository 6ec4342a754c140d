// Package dump collects the tensors a frozen network is made of and writes
// them to the weights file read by the inference runtime.
//
// Layers register exports with Registry.Emit while the network is built.
// Nothing is evaluated until the registry is flushed, so an export always
// reflects the parameter values at flush time, typically moving averages
// after the last training step.
//
// The weights file is a JSON object, one member per export in emit order:
//
//	{
//	  "01_upsample/conv_1/offset:0": "<base85>",
//	  "01_upsample/conv_1:0": {"t": "i1", "n": 4608, "v": "<base85>", "s": 0.0123}
//	}
//
// fp16 exports map their name to a bare base85 string of little-endian
// half-precision values, zero-padded to a multiple of 4 bytes. This is the
// only form the inference runtime reads; it finds the name and the value by
// scanning for quotes. Other encodings are written as records: "t" is the
// encoding, "n" the element count, "v" the element bytes in RFC 1924 base85
// and "s" the dequantization scale of int8 exports. Read accepts both.
package dump
