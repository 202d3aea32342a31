/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package tlsconfig

import "github.com/nabbar/staticd/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgTLSConfig
	ErrorCertFileMissing
	ErrorCertFileRead
	ErrorCertPairInvalid
	ErrorCertChainInvalid
	ErrorPrivateKeyInvalid
	ErrorCertPoolAppend
)

func init() {
	errors.RegisterIdFctMessage(errors.MinPkgTLSConfig, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorParamsEmpty:
		return "certificate path or PEM content is empty"
	case ErrorCertFileMissing:
		return "certificate file does not exist"
	case ErrorCertFileRead:
		return "cannot read certificate file"
	case ErrorCertPairInvalid:
		return "certificate/key pair does not match"
	case ErrorCertChainInvalid:
		return "certificate chain has no leaf certificate"
	case ErrorPrivateKeyInvalid:
		return "private key is missing or unsupported"
	case ErrorCertPoolAppend:
		return "cannot append certificate to pool"
	}

	return errors.NullMessage
}
