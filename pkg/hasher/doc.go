// Package hasher exposes the xxHash families (XXH32, XXH64, XXH3-64 and
// XXH3-128) in three calling modes.
//
// # One-shot
//
//	sum := hasher.Hash3(data, seed)
//	wide, err := hasher.Hash128WithSecret(data, secret)
//
// # Streaming
//
//	h, err := hasher.NewHasher3(hasher.Params{Seed: 7})
//	h.Update(part1)
//	h.Update(part2)
//	sum := h.Digest()
//	h.Reset()
//
// # Batch
//
//	sums, err := hasher.Batch3(chunks, hasher.Params{Secret: secret})
//
// Secrets must be exactly SecretSize bytes; anything else fails with an error
// matching ErrInvalidSecretLength before any hashing happens.
package hasher
