// Package hashers is the static registry of fingerprint algorithms.
//
// Binary algorithms (md5, the SHA-2 and SHA-3 families, shake, blake2,
// blake3, md4, ripemd160, crc32, adler32, fnv128a) are pure functions of the
// file bytes and expose a hash.Hash factory so that one read of a file can
// feed all of them through [SumFile]. Perceptual algorithms (ahash, dhash,
// phash and the 256-bit dhash16/phash16) work on a decoded image and expose
// Compute so that one decode serves all of them.
//
// "visual" is an alias for dhash. All digests are lower-case hex.
package hashers
