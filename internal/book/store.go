// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import "context"

type Repository interface {
	// ListBooks runs the composed catalog query and returns the page
	// plus the unpaginated total.
	ListBooks(context context.Context, filter Filter, viewer Viewer, limit, offset int) ([]Book, int, error)

	GetBook(context context.Context, filename string) (*Book, error)
	CreateBook(context context.Context, book *Book) error
	UpdateBook(context context.Context, book *Book) error
	DeleteBook(context context.Context, filename string) error

	// ListFilenames returns every catalog filename, for the
	// filesystem reconciliation sweep.
	ListFilenames(context context.Context) ([]string, error)
}
