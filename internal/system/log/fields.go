/*
 * Copyright (c) 2026, Ringboard, Inc. (https://www.ringboard.io).
 *
 * Ringboard, Inc. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package log

import (
	"time"

	"go.uber.org/zap"
)

// Field represents a typed key-value pair attached to a log entry.
type Field = zap.Field

// String constructs a field with a string value.
func String(key string, value string) Field {
	return zap.String(key, value)
}

// Int constructs a field with an int value.
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Int64 constructs a field with an int64 value.
func Int64(key string, value int64) Field {
	return zap.Int64(key, value)
}

// Bool constructs a field with a bool value.
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Float64 constructs a field with a float64 value.
func Float64(key string, value float64) Field {
	return zap.Float64(key, value)
}

// Duration constructs a field with a duration value.
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Any constructs a field with an arbitrary value.
func Any(key string, value interface{}) Field {
	return zap.Any(key, value)
}

// Error constructs a field from an error under the "error" key.
func Error(err error) Field {
	return zap.Error(err)
}
