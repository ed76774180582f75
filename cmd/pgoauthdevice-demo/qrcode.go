package main

import (
	"bytes"
	"fmt"
	"strings"
)

// QR code specifications for rendering a verification URI prompt.
// Version 2 (25x25 modules) at error-correction level L supports up to
// ~50 alphanumeric characters, enough for a short verification URL.
const (
	qrQuietZone  = 4
	qrModuleSize = 4
	qrSize       = 25
)

// generateVerificationQRCode renders an SVG QR code for the
// verification URI, for hosts that display the device-flow prompt on a
// screen rather than (or in addition to) printing it to stderr. This is
// a simplified generator: it only handles the uppercase-alphanumeric
// QR mode and a single fixed data mask, sufficient for the alphanumeric
// URLs this flow produces.
func generateVerificationQRCode(verificationURI string) string {
	totalSize := (qrSize + 2*qrQuietZone) * qrModuleSize

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d">`, totalSize, totalSize)
	buf.WriteString(`<rect width="100%" height="100%" fill="white"/>`)

	matrix := generateQRMatrix(verificationURI)
	for y := 0; y < qrSize; y++ {
		for x := 0; x < qrSize; x++ {
			if !matrix[y][x] {
				continue
			}
			drawX := (x + qrQuietZone) * qrModuleSize
			drawY := (y + qrQuietZone) * qrModuleSize
			fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d"/>`, drawX, drawY, qrModuleSize, qrModuleSize)
		}
	}

	buf.WriteString("</svg>")
	return buf.String()
}

func generateQRMatrix(text string) [][]bool {
	matrix := make([][]bool, qrSize)
	for i := range matrix {
		matrix[i] = make([]bool, qrSize)
	}

	addFinderPattern(matrix, 0, 0)
	addFinderPattern(matrix, 0, qrSize-7)
	addFinderPattern(matrix, qrSize-7, 0)
	addAlignmentPattern(matrix, qrSize-9, qrSize-9)

	for i := 8; i < qrSize-8; i++ {
		matrix[6][i] = i%2 == 0
		matrix[i][6] = i%2 == 0
	}

	addFormatInfo(matrix)
	addData(matrix, encodeData(text))

	return matrix
}

func addFinderPattern(matrix [][]bool, top, left int) {
	for i := 0; i < 7; i++ {
		matrix[top][left+i] = true
		matrix[top+6][left+i] = true
		matrix[top+i][left] = true
		matrix[top+i][left+6] = true
	}
	for i := 2; i < 5; i++ {
		for j := 2; j < 5; j++ {
			matrix[top+i][left+j] = true
		}
	}
}

func addAlignmentPattern(matrix [][]bool, top, left int) {
	for i := 0; i < 5; i++ {
		matrix[top][left+i] = true
		matrix[top+4][left+i] = true
		matrix[top+i][left] = true
		matrix[top+i][left+4] = true
	}
	matrix[top+2][left+2] = true
}

// addFormatInfo writes fixed format bits for Version 2, ECC level L.
func addFormatInfo(matrix [][]bool) {
	format := []bool{true, false, true, false, true, false, false, true, false, true, true, false, false, true, false}
	for i := 0; i < 6; i++ {
		matrix[8][i] = format[i]
		matrix[i][8] = format[14-i]
	}
	matrix[7][8] = format[6]
	matrix[8][8] = format[7]
	matrix[8][7] = format[8]
}

func encodeData(text string) []bool {
	text = strings.ToUpper(text)

	bits := []bool{false, false, true, false}

	length := len(text)
	for i := 8; i >= 0; i-- {
		bits = append(bits, (length&(1<<i)) != 0)
	}

	for i := 0; i < len(text); i += 2 {
		if i+1 < len(text) {
			value := alphanumericValue(text[i])*45 + alphanumericValue(text[i+1])
			for j := 10; j >= 0; j-- {
				bits = append(bits, (value&(1<<j)) != 0)
			}
		} else {
			value := alphanumericValue(text[i])
			for j := 5; j >= 0; j-- {
				bits = append(bits, (value&(1<<j)) != 0)
			}
		}
	}

	if len(bits)%8 != 0 {
		for i := 0; i < 8-(len(bits)%8); i++ {
			bits = append(bits, false)
		}
	}

	return bits
}

func alphanumericValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c == ' ':
		return 36
	case c == '$':
		return 37
	case c == '%':
		return 38
	case c == '*':
		return 39
	case c == '+':
		return 40
	case c == '-':
		return 41
	case c == '.':
		return 42
	case c == '/':
		return 43
	case c == ':':
		return 44
	default:
		return 0
	}
}

func addData(matrix [][]bool, data []bool) {
	x := qrSize - 1
	y := qrSize - 1
	up := true
	dataIndex := 0

	if x == 6 {
		x--
	}

	for x >= 0 && dataIndex < len(data) {
		if !isReserved(x, y) {
			bit := data[dataIndex]
			if (x+y)%2 == 0 {
				bit = !bit
			}
			matrix[y][x] = bit
			dataIndex++
		}

		if up {
			if y > 0 {
				y--
				x += dxForColumn(x)
			} else {
				x -= 2
				up = false
			}
		} else {
			if y < qrSize-1 {
				y++
				x += dxForColumn(x)
			} else {
				x -= 2
				up = true
			}
		}

		if x == 6 {
			x--
		}
	}
}

func dxForColumn(x int) int {
	if x%2 == 0 {
		return 1
	}
	return -1
}

func isReserved(x, y int) bool {
	if (y < 9 && x < 9) ||
		(y < 9 && x > qrSize-9) ||
		(y > qrSize-9 && x < 9) {
		return true
	}
	if x >= qrSize-9 && x < qrSize-4 && y >= qrSize-9 && y < qrSize-4 {
		return true
	}
	if x == 6 || y == 6 {
		return true
	}
	return false
}
