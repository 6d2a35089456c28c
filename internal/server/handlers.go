package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guiyumin/mediahub/internal/core/delivery"
	"github.com/guiyumin/mediahub/internal/core/logging"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/version"
	"github.com/guiyumin/mediahub/internal/stats"
)

// DownloadRequest is the request body for POST /api/download
type DownloadRequest struct {
	URL     string `json:"url" form:"url"`
	Format  string `json:"format" form:"format"`
	Quality string `json:"quality" form:"quality"`
	Title   string `json:"title" form:"title"`
}

// AdViewRequest is the optional body for POST /api/record-ad-view
type AdViewRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":           "ok",
		"version":          version.Version,
		"active_transfers": s.transfers.Active(),
	}
	if s.deps.Providers != nil {
		body["providers"] = s.deps.Providers()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleInfo(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		s.abortWithError(c, media.InvalidURL(errors.New("missing url parameter")))
		return
	}

	info, err := s.deps.Resolver.Resolve(c.Request.Context(), raw)
	if err != nil {
		if clientGone(c.Request.Context(), err) {
			c.Abort()
			return
		}
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (s *Server) handleDownload(c *gin.Context) {
	var req DownloadRequest
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.abortWithError(c, &media.Error{
				Code:    media.CodeInvalidRequest,
				Message: "invalid request body",
				Err:     err,
			})
			return
		}
	} else if err := c.ShouldBindQuery(&req); err != nil {
		s.abortWithError(c, &media.Error{Code: media.CodeInvalidRequest, Message: "invalid query", Err: err})
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.abortWithError(c, media.InvalidURL(errors.New("missing url parameter")))
		return
	}

	format := media.FormatMP4
	if req.Format != "" {
		f, ok := media.ParseFormat(req.Format)
		if !ok {
			s.abortWithError(c, media.NewError(media.CodeInvalidRequest, "format must be mp3 or mp4"))
			return
		}
		format = f
	}

	if !s.acquireStream() {
		s.abortWithError(c, media.NewError(media.CodeBusy, "The server is busy, please try again shortly"))
		return
	}
	defer s.releaseStream()

	ctx := c.Request.Context()
	res, err := s.deps.Streamer.Deliver(ctx, delivery.Request{
		URL:     req.URL,
		Format:  format,
		Quality: strings.TrimSpace(req.Quality),
		Title:   strings.TrimSpace(req.Title),
	})
	if err != nil {
		if clientGone(ctx, err) {
			c.Abort()
			return
		}
		s.abortWithError(c, err)
		return
	}

	if res.Redirect != "" {
		c.Redirect(http.StatusFound, res.Redirect)
		return
	}

	s.stream(c, req, format, res)
}

// stream copies an extractor-backed body to the client, tracking it as a transfer.
func (s *Server) stream(c *gin.Context, req DownloadRequest, format media.Format, res *delivery.Result) {
	ctx := c.Request.Context()
	log := logging.FromContext(ctx, s.log)

	id := s.transfers.Add(Transfer{
		URL:      req.URL,
		Platform: string(res.Platform),
		Filename: res.Filename,
		Format:   string(format),
		Quality:  req.Quality,
	}, res.Abort)

	c.Header("Content-Type", res.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Transfer-ID", id)
	c.Status(http.StatusOK)

	cw := &countingWriter{
		w: c.Writer,
		onWrite: func(total int64) {
			s.transfers.Progress(id, total)
		},
	}
	_, copyErr := io.Copy(cw, res.Body)
	finErr := res.Finish(ctx, copyErr)

	switch {
	case copyErr != nil:
		s.transfers.Finish(id, TransferAborted, "")
		log.Info().Str("transfer_id", id).Int64("bytes", cw.n).Msg("transfer aborted")
	case finErr != nil:
		s.transfers.Finish(id, TransferFailed, media.PublicMessage(finErr))
		log.Warn().Err(finErr).Str("transfer_id", id).Int64("bytes", cw.n).Msg("transfer failed mid-stream")
		// Headers are out, so the only signal left is a truncated response.
		abortConnection(ctx)
	default:
		s.transfers.Finish(id, TransferCompleted, "")
		log.Info().Str("transfer_id", id).Int64("bytes", cw.n).Msg("transfer completed")
	}
}

func (s *Server) handleRecordAdView(c *gin.Context) {
	var req AdViewRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)

	if s.deps.Stats == nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	err := s.deps.Stats.RecordPremiumEvent(c.Request.Context(), stats.PremiumEvent{
		Kind: stats.KindAdView,
		URL:  req.URL,
		At:   time.Now(),
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCharityStats(c *gin.Context) {
	if s.deps.Stats == nil {
		now := time.Now().UTC()
		c.JSON(http.StatusOK, stats.Snapshot{Month: now.Month().String(), Year: now.Year()})
		return
	}

	snap, err := s.deps.Stats.Current(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleGetTransfers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transfers": s.transfers.All()})
}

func (s *Server) handleDeleteTransfer(c *gin.Context) {
	id := c.Param("id")

	if s.transfers.Cancel(id) {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": TransferCancelled})
		return
	}
	if s.transfers.Remove(id) {
		c.JSON(http.StatusOK, gin.H{"id": id, "removed": true})
		return
	}
	s.abortWithError(c, media.NewError(media.CodeNotFound, "transfer not found"))
}

// clientGone reports whether err only reflects the client going away.
func clientGone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// countingWriter flushes after every write so bytes reach the client as the
// extractor produces them.
type countingWriter struct {
	w       gin.ResponseWriter
	n       int64
	onWrite func(total int64)
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	if err != nil {
		return n, err
	}
	cw.w.Flush()
	if cw.onWrite != nil {
		cw.onWrite(cw.n)
	}
	return n, nil
}

// abortConnection drops the connection without terminating the chunked body.
func abortConnection(ctx context.Context) {
	w, ok := ctx.Value(rawWriterKey{}).(http.ResponseWriter)
	if !ok {
		return
	}
	if conn, _, err := http.NewResponseController(w).Hijack(); err == nil {
		conn.Close()
	}
}
