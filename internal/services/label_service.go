package services

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

const (
	labelSize     = 256
	labelCacheTTL = 24 * time.Hour
)

// LabelService renders the QR shelf label printed on each copy.
type LabelService struct {
	copies *CopyService
	redis  *redis.Client
}

func NewLabelService(copies *CopyService, redisClient *redis.Client) *LabelService {
	return &LabelService{copies: copies, redis: redisClient}
}

func labelKey(barcode string) string {
	return fmt.Sprintf("label:%s", barcode)
}

// Label returns a PNG QR code encoding the copy's barcode.
func (s *LabelService) Label(ctx context.Context, copyID int64) ([]byte, error) {
	c, err := s.copies.GetCopy(ctx, copyID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		data, err := s.redis.Get(ctx, labelKey(c.Barcode)).Bytes()
		if err == nil {
			return data, nil
		}
		if err != redis.Nil {
			log.Printf("[COPY] Label cache read failed for %s: %v", c.Barcode, err)
		}
	}

	data, err := renderLabel(c.Barcode)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, labelKey(c.Barcode), data, labelCacheTTL).Err(); err != nil {
			log.Printf("[COPY] Label cache write failed for %s: %v", c.Barcode, err)
		}
	}
	return data, nil
}

func renderLabel(barcode string) ([]byte, error) {
	qr, err := qrcode.New(barcode, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(labelSize)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
