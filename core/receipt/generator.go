package receipt

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const templatePath = "templates/receipt/receipt.gohtml"

var NowFunc = time.Now // mockable

// Data is everything printed on a payment receipt.
type Data struct {
	TenantID           string
	ReceiptNumber      string
	Date               time.Time
	InstitutionName    string
	InstitutionAddress string
	StudentName        string
	RollNumber         string
	ClassName          string
	Amount             decimal.Decimal
	Currency           string
	PaymentMethod      string
	TransactionID      string
}

// Document is a rendered receipt.
type Document struct {
	Content     []byte
	ContentType string
	Ext         string
}

type (
	// Renderer turns the receipt HTML into the document handed to students.
	Renderer interface {
		Render(ctx context.Context, html []byte) (Document, error)
	}

	// Store persists a document under `key` and returns the URL it can be downloaded from.
	Store interface {
		Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	}
)

// HTMLRenderer keeps the receipt as an HTML page.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(_ context.Context, html []byte) (Document, error) {
	return Document{Content: html, ContentType: "text/html; charset=utf-8", Ext: ".html"}, nil
}

type Generator struct {
	tmpl     *htmltmpl.Template
	renderer Renderer
	store    Store
}

func NewGenerator(fsys fs.FS, renderer Renderer, store Store) (*Generator, error) {
	tmpl, err := htmltmpl.ParseFS(fsys, templatePath)
	if err != nil {
		return nil, errors.Wrap(err, "parsing receipt template")
	}
	return &Generator{
		tmpl:     tmpl.Option("missingkey=error"),
		renderer: renderer,
		store:    store,
	}, nil
}

// Number returns a receipt number derived from `t` and the paid document `id`:
// "REC-<unix milliseconds>-<first 8 characters of id>", upper-cased.
func Number(t time.Time, id string) string {
	id = strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	num := "REC-" + strconv.FormatInt(t.UnixNano()/int64(time.Millisecond), 10)
	if id == "" {
		return num
	}
	return num + "-" + id
}

// Generate renders and stores the receipt, returning its download URL.
func (g *Generator) Generate(ctx context.Context, data Data) (string, error) {
	now := NowFunc()
	if data.ReceiptNumber == "" {
		data.ReceiptNumber = Number(now, uuid.New().String())
	}
	if data.Date.IsZero() {
		data.Date = now
	}

	var buff bytes.Buffer
	if err := g.tmpl.Execute(&buff, data); err != nil {
		return "", errors.Wrap(err, "executing receipt template")
	}
	doc, err := g.renderer.Render(ctx, buff.Bytes())
	if err != nil {
		return "", errors.Wrap(err, "rendering receipt")
	}

	key := path.Join("receipts", data.TenantID, "receipt-"+data.ReceiptNumber+doc.Ext)
	url, err := g.store.Put(ctx, key, doc.Content, doc.ContentType)
	return url, errors.Wrap(err, "storing receipt")
}
