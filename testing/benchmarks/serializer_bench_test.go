package benchmarks

import (
	"testing"

	"github.com/zoobzio/parcel"
	"github.com/zoobzio/parcel/cbor"
	"github.com/zoobzio/parcel/msgpack"
	parceltest "github.com/zoobzio/parcel/testing"
)

func BenchmarkChain_Encode_PlainJSON(b *testing.B) {
	chain := parcel.MustChain(parcel.Null(), parcel.Bytes(), parcel.JSON())
	user := parceltest.SimpleUser{ID: "123", Name: "Alice"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = chain.Encode(user)
	}
}

func BenchmarkChain_Encode_SealedField(b *testing.B) {
	chain := parceltest.SealedChain(b, parceltest.TestKeyring(b))
	signup := parceltest.TestSignup()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = chain.Encode(signup)
	}
}

func BenchmarkChain_Encode_SealedWhole(b *testing.B) {
	chain := parceltest.SealedChain(b, parceltest.TestKeyring(b), parcel.WithWholeDocument())
	signup := parceltest.TestSignup()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = chain.Encode(signup)
	}
}

func BenchmarkChain_Decode_SealedField(b *testing.B) {
	chain := parceltest.SealedChain(b, parceltest.TestKeyring(b))
	p, err := chain.Encode(parceltest.TestSignup())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s parceltest.Signup
		_ = chain.Decode(p, &s)
	}
}

func BenchmarkChain_Decode_HistoricalKey(b *testing.B) {
	old := parceltest.SealedChain(b, parceltest.NewKeyring(b, []string{parceltest.KeyOld2}))
	p, err := old.Encode(parceltest.TestSignup())
	if err != nil {
		b.Fatal(err)
	}
	chain := parceltest.SealedChain(b, parceltest.TestKeyring(b))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s parceltest.Signup
		_ = chain.Decode(p, &s)
	}
}

func BenchmarkCodec_MessagePack(b *testing.B) {
	c := msgpack.New()
	user := parceltest.SimpleUser{ID: "123", Name: "Alice"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, _ := c.Encode(user)
		var out parceltest.SimpleUser
		_ = c.Decode(p, &out)
	}
}

func BenchmarkCodec_CBOR(b *testing.B) {
	c := cbor.New()
	user := parceltest.SimpleUser{ID: "123", Name: "Alice"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, _ := c.Encode(user)
		var out parceltest.SimpleUser
		_ = c.Decode(p, &out)
	}
}

func BenchmarkEncryptor_AES(b *testing.B) {
	enc := parceltest.TestEncryptor(b)
	plaintext := []byte(`{"password":"Wow!123"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ct, _ := enc.Encrypt(plaintext)
		_, _ = enc.Decrypt(ct)
	}
}
