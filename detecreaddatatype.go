package hmmdash

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"io/ioutil"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2

	// DataTypeXLS is a legacy Excel workbook. It is not decompressed here;
	// the table loader reads it sheet by sheet.
	DataTypeXLS
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
	DataTypeXLS:   {0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1},
}

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "plain"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	case DataTypeXLS:
		return "xls"
	}

	return "invalid"
}

// DetectDataType attempts to detect the data type of a payload by checking
// against a set of known signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(raw []byte) DataType {
	if len(raw) == 0 {
		return DataTypeInvalid
	}

	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(raw) < len(sig) {
			continue
		}
		for position := range sig {
			if raw[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompress returns the decompressed contents of raw if it carries a
// known compression signature, and raw itself otherwise. Zip archives yield
// their first member.
func MaybeDecompress(raw []byte) ([]byte, error) {
	var r io.Reader

	switch DetectDataType(raw) {
	case DataTypeGzip:
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case DataTypeZip:
		zr := zipstream.NewReader(bytes.NewReader(raw))
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(bytes.NewReader(raw))
	case DataTypeXZ:
		xr, err := xz.NewReader(bytes.NewReader(raw), 0)
		if err != nil {
			return nil, err
		}
		r = xr
	case DataTypeZ:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	default:
		// No data type detected. For now, we assume this is uncompressed.
		return raw, nil
	}

	return ioutil.ReadAll(r)
}
