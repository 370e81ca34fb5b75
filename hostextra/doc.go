// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hostextra loads the I²C controller drivers of this module.
//
// Import it, call Init() and open the buses with i2creg.Open(). The drivers
// depend on third party Go packages, which is why they are not part of
// periph.io/x/periph/host.
package hostextra
