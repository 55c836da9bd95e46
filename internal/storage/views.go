/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"picviewer/internal/geom"
)

const viewColumns = `path, img_w, img_h, vp_w, vp_h, x, y, w, h, updated_at`

// SaveView inserts or replaces the view stored for v.Path. A zero UpdatedAt is set to now.
func (s *Store) SaveView(ctx context.Context, v View) error {
	if v.Path == "" {
		return errors.New("save view: path is required")
	}
	if v.Image.Empty() || v.Viewport.Empty() || v.Display.Empty() {
		return fmt.Errorf("save view %s: empty geometry", v.Path)
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	q := s.rebind(`INSERT INTO views (` + viewColumns + `) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			img_w=excluded.img_w, img_h=excluded.img_h,
			vp_w=excluded.vp_w, vp_h=excluded.vp_h,
			x=excluded.x, y=excluded.y, w=excluded.w, h=excluded.h,
			updated_at=excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, q,
		v.Path, v.Image.W, v.Image.H, v.Viewport.W, v.Viewport.H,
		v.Display.X, v.Display.Y, v.Display.W, v.Display.H, v.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save view %s: %w", v.Path, err)
	}
	s.log.Debug("view saved", slog.String("path", v.Path), slog.String("display", v.Display.String()))
	return nil
}

// LoadView returns the view stored for path, or ErrNotFound.
func (s *Store) LoadView(ctx context.Context, path string) (View, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+viewColumns+` FROM views WHERE path=?`), path)
	v, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return View{}, ErrNotFound
	}
	if err != nil {
		return View{}, fmt.Errorf("load view %s: %w", path, err)
	}
	return v, nil
}

// Recent lists stored views, most recently updated first. limit <= 0 means 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]View, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+viewColumns+` FROM views ORDER BY updated_at DESC, path LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("recent views: %w", err)
	}
	defer rows.Close()
	var out []View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("recent views: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent views: %w", err)
	}
	return out, nil
}

// Delete removes the view stored for path. It returns ErrNotFound if there was none.
func (s *Store) Delete(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM views WHERE path=?`), path)
	if err != nil {
		return fmt.Errorf("delete view %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune keeps the keep most recently updated views and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM views WHERE path NOT IN (
		SELECT path FROM views ORDER BY updated_at DESC, path LIMIT ?)`), keep)
	if err != nil {
		return 0, fmt.Errorf("prune views: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Info("views pruned", slog.Int64("removed", n), slog.Int("kept", keep))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(sc scanner) (View, error) {
	var (
		v  View
		ms int64
	)
	err := sc.Scan(&v.Path, &v.Image.W, &v.Image.H, &v.Viewport.W, &v.Viewport.H,
		&v.Display.X, &v.Display.Y, &v.Display.W, &v.Display.H, &ms)
	if err != nil {
		return View{}, err
	}
	v.UpdatedAt = time.UnixMilli(ms)
	return v, nil
}

// Matches reports whether v was recorded for the given image and viewport sizes.
func (v View) Matches(img, vp geom.Size) bool {
	return v.Image == img && v.Viewport == vp
}
