package shaders

import (
	"embed"
	"os"

	"github.com/cockroachdb/errors"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

const (
	Vertex   = "triangle.vert.spv"
	Fragment = "triangle.frag.spv"
)

//go:embed triangle.vert.spv triangle.frag.spv
var compiled embed.FS

// Load returns the SPIR-V module at path, or the embedded module name when
// path is empty.
func Load(name, path string) ([]uint32, error) {
	if path == "" {
		return Embedded(name)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load shader %s", path)
	}

	code, err := bytesToBytecode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "load shader %s", path)
	}
	return code, nil
}

// Embedded returns one of the SPIR-V modules compiled into the binary.
func Embedded(name string) ([]uint32, error) {
	b, err := compiled.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "embedded shader %s", name)
	}

	code, err := bytesToBytecode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "embedded shader %s", name)
	}
	return code, nil
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v size %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#08x", byteCode[0])
	}
	return byteCode, nil
}
