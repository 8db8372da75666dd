package model

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ChizhovVadim/vcgan/internal/ml"
)

// Binary layout of the snapshot file:
// - All the data is stored in little-endian layout
// - All the matrices are written in row-major
// - The magic number/version consists of 4 bytes:
//   - 86 (which is the ASCII code for V), uint8
//   - 67 (which is the ASCII code for C), uint8
//   - 1 The major part of the current version number, uint8
//   - 0 The minor part of the current version number, uint8
//
// - 4 bytes (uint32) number of parameter matrices
// - For every matrix: 4 bytes rows, 4 bytes cols, then rows*cols float32 values
func SaveParams(file string, params []*ml.Param) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	var w = bufio.NewWriter(f)
	err = writeParams(w, params)
	if err != nil {
		return err
	}
	err = w.Flush()
	if err != nil {
		return err
	}
	return f.Close()
}

func writeParams(w io.Writer, params []*ml.Param) error {
	var buf = []byte{86, 67, 1, 0}
	_, err := w.Write(buf)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf, uint32(len(params)))
	_, err = w.Write(buf)
	if err != nil {
		return err
	}

	var header = make([]byte, 8)
	for _, p := range params {
		var rows, cols = p.Value.Dims()
		binary.LittleEndian.PutUint32(header[0:], uint32(rows))
		binary.LittleEndian.PutUint32(header[4:], uint32(cols))
		_, err = w.Write(header)
		if err != nil {
			return err
		}
		err = writeSlice(w, p.Data())
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadParams reads a snapshot into already allocated params. Shapes must match.
func LoadParams(file string, params []*ml.Param) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return readParams(bufio.NewReader(f), params)
}

func readParams(r io.Reader, params []*ml.Param) error {
	var buf = make([]byte, 4)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return err
	}
	if buf[0] != 86 || buf[1] != 67 {
		return fmt.Errorf("snapshot: magic word does not match")
	}
	if buf[2] != 1 || buf[3] != 0 {
		return fmt.Errorf("snapshot: version %v.%v is not supported", buf[2], buf[3])
	}

	_, err = io.ReadFull(r, buf)
	if err != nil {
		return err
	}
	var count = int(binary.LittleEndian.Uint32(buf))
	if count != len(params) {
		return fmt.Errorf("snapshot: expected %v matrices, found %v", len(params), count)
	}

	var header = make([]byte, 8)
	for _, p := range params {
		_, err = io.ReadFull(r, header)
		if err != nil {
			return err
		}
		var rows = int(binary.LittleEndian.Uint32(header[0:]))
		var cols = int(binary.LittleEndian.Uint32(header[4:]))
		var r0, c0 = p.Value.Dims()
		if rows != r0 || cols != c0 {
			return fmt.Errorf("snapshot: %v has shape %vx%v, file has %vx%v", p.Name, r0, c0, rows, cols)
		}
		var data = p.Data()
		for j := range data {
			_, err = io.ReadFull(r, buf)
			if err != nil {
				return err
			}
			data[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		}
	}
	return nil
}

func writeSlice(w io.Writer, data []float64) error {
	buf := make([]byte, 4)
	for j := range data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(data[j])))
		_, err := w.Write(buf)
		if err != nil {
			return err
		}
	}
	return nil
}
