package reader

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/tsawler/pdfreader/core"
)

// Encryption errors. Both are of kind core.KindEncryption.
var (
	ErrFileNotDecrypted = core.NewError(core.KindEncryption, -1, nil, "File has not been decrypted")
	ErrWrongPassword    = core.NewError(core.KindEncryption, -1, nil, "wrong password")
)

// passwordPad is the padding string of the standard security handler.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// cryptMethod is how strings or streams are encrypted.
type cryptMethod int

const (
	methodNone cryptMethod = iota
	methodRC4
	methodAESV2 // AES-128 CBC
	methodAESV3 // AES-256 CBC
)

// securityHandler implements the standard security handler, revisions 2
// through 6.
type securityHandler struct {
	v, r   int
	keyLen int // bytes
	o, u   []byte
	oe, ue []byte
	p      uint32
	id     []byte

	encryptMetadata bool
	stmMethod       cryptMethod
	strMethod       cryptMethod

	key []byte
}

// newSecurityHandler reads an /Encrypt dictionary. id is the first element
// of the trailer's /ID.
func newSecurityHandler(dict core.Dict, id []byte) (*securityHandler, error) {
	if filter, ok := dict.GetName("Filter"); ok && filter != "Standard" {
		return nil, fmt.Errorf("unsupported security handler /%s", filter)
	}

	h := &securityHandler{
		keyLen:          5,
		id:              id,
		encryptMetadata: true,
	}
	if v, ok := dict.GetInt("V"); ok {
		h.v = int(v)
	}
	if r, ok := dict.GetInt("R"); ok {
		h.r = int(r)
	}
	if length, ok := dict.GetInt("Length"); ok && length >= 40 {
		h.keyLen = int(length) / 8
	}
	if p, ok := dict.GetInt("P"); ok {
		h.p = uint32(int32(p))
	}
	if b, ok := dict.GetBool("EncryptMetadata"); ok {
		h.encryptMetadata = bool(b)
	}
	h.o = stringBytes(dict.Get("O"))
	h.u = stringBytes(dict.Get("U"))
	h.oe = stringBytes(dict.Get("OE"))
	h.ue = stringBytes(dict.Get("UE"))

	switch h.v {
	case 1:
		h.keyLen = 5
		h.stmMethod, h.strMethod = methodRC4, methodRC4
	case 2:
		h.stmMethod, h.strMethod = methodRC4, methodRC4
	case 4, 5:
		stm, stmLen, err := cryptFilter(dict, "StmF")
		if err != nil {
			return nil, err
		}
		str, strLen, err := cryptFilter(dict, "StrF")
		if err != nil {
			return nil, err
		}
		h.stmMethod, h.strMethod = stm, str
		if n := max(stmLen, strLen); n > 0 {
			h.keyLen = n
		}
		if h.v == 5 {
			h.keyLen = 32
		}
	default:
		return nil, fmt.Errorf("unsupported encryption version V=%d", h.v)
	}

	switch h.r {
	case 2, 3, 4:
		if len(h.o) < 32 || len(h.u) < 32 {
			return nil, fmt.Errorf("/O or /U shorter than 32 bytes")
		}
	case 5, 6:
		if len(h.o) < 48 || len(h.u) < 48 || len(h.oe) < 32 || len(h.ue) < 32 {
			return nil, fmt.Errorf("/O, /U, /OE or /UE too short for revision %d", h.r)
		}
	default:
		return nil, fmt.Errorf("unsupported encryption revision R=%d", h.r)
	}
	if h.keyLen < 5 || h.keyLen > 32 {
		return nil, fmt.Errorf("invalid key length %d", h.keyLen*8)
	}
	return h, nil
}

// cryptFilter looks up the method named by /StmF or /StrF in /CF. It also
// returns the filter's key length in bytes, or 0.
func cryptFilter(dict core.Dict, key string) (cryptMethod, int, error) {
	name, ok := dict.GetName(key)
	if !ok || name == "Identity" {
		return methodNone, 0, nil
	}
	cf, _ := dict.GetDict("CF")
	filter, ok := cf.GetDict(string(name))
	if !ok {
		return methodNone, 0, fmt.Errorf("crypt filter /%s not defined", name)
	}

	length := 0
	if n, ok := filter.GetInt("Length"); ok {
		length = int(n)
		if length >= 40 {
			// some writers give bits
			length /= 8
		}
	}

	cfm, _ := filter.GetName("CFM")
	switch cfm {
	case "", "None":
		return methodNone, length, nil
	case "V2":
		return methodRC4, length, nil
	case "AESV2":
		return methodAESV2, 16, nil
	case "AESV3":
		return methodAESV3, 32, nil
	default:
		return methodNone, 0, fmt.Errorf("unsupported crypt filter method /%s", cfm)
	}
}

func stringBytes(obj core.Object) []byte {
	if s, ok := obj.(core.String); ok {
		return []byte(s)
	}
	return nil
}

// authenticate tries password as the user password, then as the owner
// password, and keeps the file key on success.
func (h *securityHandler) authenticate(password string) error {
	pw := []byte(password)
	var (
		key []byte
		ok  bool
	)
	if h.r >= 5 {
		if len(pw) > 127 {
			pw = pw[:127]
		}
		key, ok = h.userKeyR5(pw)
		if !ok {
			key, ok = h.ownerKeyR5(pw)
		}
	} else {
		key, ok = h.userKey(pw)
		if !ok {
			key, ok = h.ownerKey(pw)
		}
	}
	if ok {
		h.key = key
		return nil
	}
	if password == "" {
		return ErrFileNotDecrypted
	}
	return ErrWrongPassword
}

func padPassword(pw []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, pw)
	copy(padded[n:], passwordPad)
	return padded
}

// fileKey computes the file key from a user password (revisions 2-4).
func (h *securityHandler) fileKey(pw []byte) []byte {
	hash := md5.New()
	hash.Write(padPassword(pw))
	hash.Write(h.o[:32])
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], h.p)
	hash.Write(p[:])
	hash.Write(h.id)
	if h.r >= 4 && !h.encryptMetadata {
		hash.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	digest := hash.Sum(nil)

	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(digest[:h.keyLen])
			digest = sum[:]
		}
	}
	return digest[:h.keyLen]
}

// userHash computes the /U value a key produces.
func (h *securityHandler) userHash(key []byte) []byte {
	if h.r == 2 {
		out := make([]byte, 32)
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(out, passwordPad)
		return out
	}

	hash := md5.New()
	hash.Write(passwordPad)
	hash.Write(h.id)
	digest := hash.Sum(nil)
	rc4Rounds(key, digest, false)
	return digest
}

// rc4Rounds applies the 20 RC4 passes of revisions 3 and 4 in place, with
// the key XORed by the pass number. reverse runs them from 19 down to 0.
func rc4Rounds(key, data []byte, reverse bool) {
	k := make([]byte, len(key))
	for n := 0; n < 20; n++ {
		i := n
		if reverse {
			i = 19 - n
		}
		for j := range key {
			k[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(k)
		c.XORKeyStream(data, data)
	}
}

func (h *securityHandler) userKey(pw []byte) ([]byte, bool) {
	key := h.fileKey(pw)
	want := h.userHash(key)
	n := 32
	if h.r >= 3 {
		n = 16
	}
	return key, bytes.Equal(want[:n], h.u[:n])
}

// ownerKey recovers the user password from /O with an owner password and
// validates it.
func (h *securityHandler) ownerKey(pw []byte) ([]byte, bool) {
	digest := md5.Sum(padPassword(pw))
	rc4Key := digest[:]
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(rc4Key)
			rc4Key = sum[:]
		}
	}
	rc4Key = rc4Key[:h.keyLen]

	user := make([]byte, 32)
	copy(user, h.o[:32])
	if h.r == 2 {
		c, _ := rc4.NewCipher(rc4Key)
		c.XORKeyStream(user, user)
	} else {
		rc4Rounds(rc4Key, user, true)
	}
	return h.userKey(user)
}

// hashR5 is the password hash of revisions 5 and 6.
func (h *securityHandler) hashR5(pw, salt, udata []byte) []byte {
	sum := sha256.New()
	sum.Write(pw)
	sum.Write(salt)
	sum.Write(udata)
	k := sum.Sum(nil)
	if h.r < 6 {
		return k
	}

	for i := 0; ; i++ {
		seq := make([]byte, 0, len(pw)+len(k)+len(udata))
		seq = append(seq, pw...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := bytes.Repeat(seq, 64)

		block, _ := aes.NewCipher(k[:16])
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		mod := 0
		for _, b := range e[:16] {
			mod += int(b)
		}
		switch mod % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		case 2:
			s := sha512.Sum512(e)
			k = s[:]
		}
		if i >= 63 && int(e[len(e)-1]) <= i-32 {
			break
		}
	}
	return k[:32]
}

func (h *securityHandler) userKeyR5(pw []byte) ([]byte, bool) {
	if !bytes.Equal(h.hashR5(pw, h.u[32:40], nil), h.u[:32]) {
		return nil, false
	}
	return decryptKeyR5(h.hashR5(pw, h.u[40:48], nil), h.ue[:32])
}

func (h *securityHandler) ownerKeyR5(pw []byte) ([]byte, bool) {
	udata := h.u[:48]
	if !bytes.Equal(h.hashR5(pw, h.o[32:40], udata), h.o[:32]) {
		return nil, false
	}
	return decryptKeyR5(h.hashR5(pw, h.o[40:48], udata), h.oe[:32])
}

// decryptKeyR5 unwraps /UE or /OE: AES-256 CBC, zero IV, no padding.
func decryptKeyR5(kek, wrapped []byte) ([]byte, bool) {
	block, err := aes.NewCipher(kek[:32])
	if err != nil {
		return nil, false
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(key, wrapped)
	return key, true
}

// objectKey derives the key for one object.
func (h *securityHandler) objectKey(ref core.IndirectRef, method cryptMethod) []byte {
	if method == methodAESV3 {
		return h.key
	}
	buf := make([]byte, 0, len(h.key)+9)
	buf = append(buf, h.key...)
	buf = append(buf, byte(ref.Number), byte(ref.Number>>8), byte(ref.Number>>16))
	buf = append(buf, byte(ref.Generation), byte(ref.Generation>>8))
	if method == methodAESV2 {
		buf = append(buf, "sAlT"...)
	}
	sum := md5.Sum(buf)
	n := min(len(h.key)+5, 16)
	return sum[:n]
}

// decryptBytes decrypts data for one object. Undecryptable AES data is
// returned unchanged.
func (h *securityHandler) decryptBytes(ref core.IndirectRef, method cryptMethod, data []byte) []byte {
	if method == methodNone || len(data) == 0 {
		return data
	}
	key := h.objectKey(ref, method)

	if method == methodRC4 {
		out := make([]byte, len(data))
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(out, data)
		return out
	}

	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return data
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return data
	}
	out := make([]byte, len(data)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, data[:aes.BlockSize]).CryptBlocks(out, data[aes.BlockSize:])
	if pad := int(out[len(out)-1]); pad >= 1 && pad <= aes.BlockSize {
		out = out[:len(out)-pad]
	}
	return out
}

// decryptObject decrypts the strings and stream data of a freshly parsed
// object in place. Streams get a new Stream value so the source bytes
// are never written.
func (h *securityHandler) decryptObject(ref core.IndirectRef, obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.String:
		return core.String(h.decryptBytes(ref, h.strMethod, []byte(v)))
	case core.Array:
		for i := range v {
			v[i] = h.decryptObject(ref, v[i])
		}
		return v
	case core.Dict:
		for k, val := range v {
			v[k] = h.decryptObject(ref, val)
		}
		return v
	case *core.Stream:
		h.decryptObject(ref, v.Dict)
		if !h.streamEncrypted(v) {
			return v
		}
		return &core.Stream{
			Dict:   v.Dict,
			Data:   h.decryptBytes(ref, h.stmMethod, v.Data),
			Offset: v.Offset,
		}
	default:
		return obj
	}
}

// streamEncrypted reports whether a stream's data is encrypted.
func (h *securityHandler) streamEncrypted(s *core.Stream) bool {
	t, _ := s.Dict.GetName("Type")
	switch {
	case t == "XRef":
		return false
	case t == "Metadata" && !h.encryptMetadata:
		return false
	}
	for _, f := range s.Filters() {
		if f == "Crypt" {
			// only the Identity crypt filter is supported
			return false
		}
	}
	return true
}
