package hashers

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/fnv"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

func init() {
	binary := []struct {
		name string
		New  func() hash.Hash
	}{
		{"md5", md5.New},
		{"sha1", sha1.New},
		{"sha224", sha256.New224},
		{"sha256", sha256.New},
		{"sha384", sha512.New384},
		{"sha512", sha512.New},
		{"sha512_224", sha512.New512_224},
		{"sha512_256", sha512.New512_256},
		{"sha3_224", sha3.New224},
		{"sha3_256", sha3.New256},
		{"sha3_384", sha3.New384},
		{"sha3_512", sha3.New512},
		{"shake_128", func() hash.Hash { return sha3.NewShake128() }},
		{"shake_256", func() hash.Hash { return sha3.NewShake256() }},
		{"blake2b", mustKeyless(blake2b.New512)},
		{"blake2s", mustKeyless(blake2s.New256)},
		{"md4", md4.New},
		{"ripemd160", ripemd160.New},
		{"blake3", func() hash.Hash { return blake3.New() }},
		{"crc32", func() hash.Hash { return crc32.NewIEEE() }},
		{"adler32", func() hash.Hash { return adler32.New() }},
		{"fnv128a", fnv.New128a},
	}

	for _, b := range binary {
		register(&Algorithm{Name: b.name, Family: FamilyBinary, New: b.New})
	}
}

// mustKeyless adapts the keyed BLAKE2 constructors, which only fail for an
// oversized key.
func mustKeyless(newKeyed func(key []byte) (hash.Hash, error)) func() hash.Hash {
	return func() hash.Hash {
		h, err := newKeyed(nil)
		if err != nil {
			panic(err)
		}
		return h
	}
}
