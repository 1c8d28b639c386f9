/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	applog "imagefusion/internal/log"
)

// ErrShareUnavailable is returned by a Sharer that cannot share on this platform.
var ErrShareUnavailable = errors.New("share not available")

// Sharer hands encoded bytes to a platform share action.
type Sharer interface {
	Share(ctx context.Context, name, mime string, data []byte) error
}

// SharerFunc adapts a function to Sharer.
type SharerFunc func(ctx context.Context, name, mime string, data []byte) error

func (f SharerFunc) Share(ctx context.Context, name, mime string, data []byte) error {
	return f(ctx, name, mime, data)
}

// ShareOrDownload offers the artifact to s. When s is nil, unavailable or rejects, the same
// bytes are written to dir as a download. shared reports which path was taken; path is set
// for downloads.
func ShareOrDownload(ctx context.Context, s Sharer, a Artifact, dir string) (shared bool, path string, err error) {
	l := applog.WithOperation(applog.WithComponent("export"), "share")
	if s != nil {
		serr := s.Share(ctx, a.Name, a.Format.MIME(), a.Data)
		if serr == nil {
			return true, "", nil
		}
		if errors.Is(serr, ErrShareUnavailable) {
			l.Debug("share unavailable, falling back to download")
		} else {
			l.Warn("share rejected, falling back to download", slog.Any("err", serr))
		}
	}
	path = filepath.Join(dir, a.Name)
	if err := writeFileAtomic(path, a.Data); err != nil {
		return false, "", err
	}
	return false, path, nil
}
