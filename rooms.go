/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/Seednode/aircontroller/relay"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320 // mobile-friendly size

func writeJSON(w http.ResponseWriter, status int, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	return w.Write(append(data, '\n'))
}

func roomNotFound(cfg *Config, w http.ResponseWriter, errs chan<- error) {
	securityHeaders(cfg, w)
	w.Header().Set("Cache-Control", "no-store")

	if _, err := writeJSON(w, http.StatusNotFound, map[string]string{
		"error": relay.ErrorMessage(relay.ErrRoomNotFound),
	}); err != nil {
		errs <- err
	}
}

// serveRoom reports the public state of an open room.
func serveRoom(cfg *Config, hub *Hub, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code := ps.ByName("code")

		info, ok := hub.Room(r.Context(), code)
		if !ok {
			roomNotFound(cfg, w, errs)

			return
		}

		securityHeaders(cfg, w)
		w.Header().Set("Cache-Control", "no-store")

		written, err := writeJSON(w, http.StatusOK, info)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room %s (%s) to %s in %s",
			code,
			humanReadableSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// joinURL is the address a phone opens to join the room with this code.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + cfg.controllerPath,
		RawQuery: url.Values{"room": {code}}.Encode(),
	}

	return u.String()
}

// serveRoomQR renders a PNG QR code pointing phones at the controller page
// with the room code filled in.
func serveRoomQR(cfg *Config, hub *Hub, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code := ps.ByName("code")

		if _, ok := hub.Room(r.Context(), code); !ok {
			roomNotFound(cfg, w, errs)

			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: QR code for room %s (%s) to %s in %s",
			code,
			humanReadableSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
