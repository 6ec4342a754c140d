// Package serialization reads and writes SafeTensors files, the checkpoint
// format of the parameter store.
//
//	Format Structure:
//	  [8 bytes: header size (uint64 LE)]
//	  [header: JSON, tensor name -> {dtype, shape, data_offsets}]
//	  [tensor data: raw little-endian bytes, tensors in name order]
//
// Supported element types are F32, F16 and I8. String metadata is stored
// under the reserved "__metadata__" key.
//
// Example usage:
//
//	err := serialization.WriteSafeTensors("ckpt.safetensors", tensors, map[string]string{"step": "1000"})
//
//	r, err := serialization.OpenSafeTensors("ckpt.safetensors")
//	defer r.Close()
//	w, err := r.Tensor("01_upsample/conv_1")
package serialization
