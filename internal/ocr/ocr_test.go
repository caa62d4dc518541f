package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pricecase/internal"
)

func pngImage(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gifImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeTesseract struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (f *fakeTesseract) recognize(_ context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if !isPNG(data) {
		return "", errors.New("not a png")
	}
	return f.text, nil
}

func TestRecognizeEmailCombinesInOriginOrder(t *testing.T) {
	fake := &fakeTesseract{text: "EAN 4006381333931"}
	e := newEngine(Options{Workers: 3})
	e.recognize = fake.recognize

	email := internal.EmailItem{
		InlineImages: []internal.Attachment{{Name: "image001.png", ContentType: "image/png", Content: pngImage(t, 10)}},
		Attachments: []internal.Attachment{
			{Name: "scan.gif", ContentType: "image/gif", Content: gifImage(t)},
			{Name: "prices.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Content: []byte("PK")},
		},
	}

	text, err := e.RecognizeEmail(context.Background(), email)
	if err != nil {
		t.Fatal(err)
	}
	want := "[OCR from inline:image001.png]\nEAN 4006381333931\n\n[OCR from attachment:scan.gif]\nEAN 4006381333931\n"
	if text != want {
		t.Fatalf("got %q want %q", text, want)
	}
	if fake.calls != 2 {
		t.Fatalf("calls=%d", fake.calls)
	}
}

func TestRecognizeEmailSkipsBrokenImages(t *testing.T) {
	fake := &fakeTesseract{text: "Datum dobave: 15.01.2024"}
	e := newEngine(Options{})
	e.recognize = fake.recognize

	email := internal.EmailItem{
		InlineImages: []internal.Attachment{{Name: "broken.jpg", ContentType: "image/jpeg", Content: []byte("not an image")}},
		Attachments: []internal.Attachment{
			{Name: "ok.png", ContentType: "image/png", Content: pngImage(t, 200)},
			{Name: "garbage.pdf", ContentType: "application/pdf", Content: []byte("not a pdf")},
		},
	}

	text, err := e.RecognizeEmail(context.Background(), email)
	if err != nil {
		t.Fatal(err)
	}
	if text != "[OCR from attachment:ok.png]\nDatum dobave: 15.01.2024\n" {
		t.Fatalf("got %q", text)
	}
}

func TestRecognizeEmailWithoutImages(t *testing.T) {
	e := newEngine(Options{})
	e.recognize = func(context.Context, []byte) (string, error) {
		t.Fatal("recognizer called")
		return "", nil
	}
	text, err := e.RecognizeEmail(context.Background(), internal.EmailItem{BodyText: "hello"})
	if err != nil || text != "" {
		t.Fatalf("text=%q err=%v", text, err)
	}
}

func TestRecognizeEmailUsesCache(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "ocr.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	fake := &fakeTesseract{text: "cached text"}
	e := newEngine(Options{Cache: cache})
	e.recognize = fake.recognize

	email := internal.EmailItem{InlineImages: []internal.Attachment{{Name: "a.png", Content: pngImage(t, 42)}}}
	for i := 0; i < 2; i++ {
		text, err := e.RecognizeEmail(context.Background(), email)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(text, "cached text") {
			t.Fatalf("text=%q", text)
		}
	}
	if fake.calls != 1 {
		t.Fatalf("calls=%d", fake.calls)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "ocr.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if _, ok := cache.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
	if err := cache.Put("k", ""); err != nil {
		t.Fatal(err)
	}
	if text, ok := cache.Get("k"); !ok || text != "" {
		t.Fatalf("text=%q ok=%v", text, ok)
	}
}

func TestToPNG(t *testing.T) {
	original := pngImage(t, 1)
	got, err := toPNG(original, "image/png")
	if err != nil || !bytes.Equal(got, original) {
		t.Fatalf("png passthrough failed: %v", err)
	}

	converted, err := toPNG(gifImage(t), "image/gif")
	if err != nil {
		t.Fatal(err)
	}
	if !isPNG(converted) {
		t.Fatal("gif not converted to png")
	}

	if _, err := toPNG([]byte("junk"), "image/jpeg"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestIsHEICFormat(t *testing.T) {
	if !isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00")) {
		t.Fatal("heic brand not detected")
	}
	if isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00")) {
		t.Fatal("mp4 detected as heic")
	}
	if isHEICFormat([]byte("short")) {
		t.Fatal("short input detected as heic")
	}
}

func TestCacheKeyIncludesLanguages(t *testing.T) {
	data := pngImage(t, 5)
	a := newEngine(Options{Languages: []string{"eng"}}).cacheKey(data)
	b := newEngine(Options{Languages: []string{"eng", "slv"}}).cacheKey(data)
	if a == b {
		t.Fatal("cache keys collide across language sets")
	}
	if !strings.HasPrefix(b, "eng+slv:") {
		t.Fatalf("key=%q", b)
	}
}
