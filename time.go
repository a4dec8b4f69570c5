// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import "time"

// nowFunc is indirected so tests can fake wall-clock time without racing
// real goroutines against a sleep.
var nowFunc = time.Now
