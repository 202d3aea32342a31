/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package logging

import "github.com/sirupsen/logrus"

// Fields is an immutable, copy-on-write set of structured log attributes.
// Every mutating method returns a new Fields, leaving the receiver untouched,
// so the same base Fields can be safely shared and specialized by multiple
// components (component, listener, worker, job_id).
type Fields map[string]interface{}

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) clone() map[string]interface{} {
	res := make(map[string]interface{}, len(f))

	for k, v := range f {
		res[k] = v
	}

	return res
}

func (f Fields) Add(key string, val interface{}) Fields {
	res := f.clone()
	res[key] = val

	return res
}

func (f Fields) Merge(other Fields) Fields {
	if len(other) < 1 {
		return f
	} else if len(f) < 1 {
		return other
	}

	res := f.clone()
	for k, v := range other {
		res[k] = v
	}

	return res
}

func (f Fields) Clean(keys ...string) Fields {
	res := make(Fields, len(f))

	for k, v := range f {
		drop := false
		for _, kk := range keys {
			if kk == k {
				drop = true
				break
			}
		}
		if !drop {
			res[k] = v
		}
	}

	return res
}

func (f Fields) Logrus() logrus.Fields {
	return f.clone()
}
