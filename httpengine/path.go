/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpengine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nabbar/staticd/errors"
)

// ResolvePath maps a request target to a file under root, rejecting any
// result that would escape root. canonicalRoot must already be the
// filepath.EvalSymlinks-resolved, absolute form of root; callers resolve it
// once at startup and pass it on every call to avoid a syscall per request.
func ResolvePath(target []byte, root string, canonicalRoot string) (string, *os.FileInfo, errors.Error) {
	raw := target
	if i := indexByteRaw(raw, '?'); i >= 0 {
		raw = raw[:i]
	}

	decoded, derr := percentDecode(raw)
	if derr != nil {
		return "", nil, ErrorPathDecode.Error(derr)
	}

	joined := filepath.Join(root, decoded)
	if strings.HasSuffix(decoded, "/") || decoded == "" {
		joined = filepath.Join(joined, "index.html")
	}

	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		// The target itself may not exist yet (that's a 404, not a
		// traversal); fall back to lexical cleaning so the traversal
		// guard below still has something to check.
		canon = filepath.Clean(joined)
	}

	if !withinRoot(canon, canonicalRoot) {
		return "", nil, ErrorPathTraversal.Error(nil)
	}

	info, statErr := os.Stat(canon)
	if statErr != nil {
		return "", nil, ErrorPathNotFound.Error(statErr)
	}

	if info.IsDir() {
		canon = filepath.Join(canon, "index.html")
		if !withinRoot(canon, canonicalRoot) {
			return "", nil, ErrorPathTraversal.Error(nil)
		}
		info2, statErr2 := os.Stat(canon)
		if statErr2 != nil {
			return "", nil, ErrorPathNotFound.Error(statErr2)
		}
		return canon, &info2, nil
	}

	return canon, &info, nil
}

func withinRoot(candidate, root string) bool {
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}

func indexByteRaw(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// percentDecode decodes %XX escapes and maps '+' to space, matching the
// application/x-www-form-urlencoded convention the original target uses for
// its query-free path segment.
func percentDecode(b []byte) (string, error) {
	out := make([]byte, 0, len(b))

	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '+':
			out = append(out, ' ')
		case '%':
			if i+2 >= len(b) {
				return "", ErrorPathDecode.Error(nil)
			}
			hi, ok1 := hexVal(b[i+1])
			lo, ok2 := hexVal(b[i+2])
			if !ok1 || !ok2 {
				return "", ErrorPathDecode.Error(nil)
			}
			out = append(out, byte(hi<<4|lo))
			i += 2
		default:
			out = append(out, b[i])
		}
	}

	return string(out), nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
