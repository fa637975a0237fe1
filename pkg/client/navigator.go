package client

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Navigator lleva al usuario a la URL de autorización (abrir navegador,
// responder un 302, imprimirla).
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapta una función.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

// PrintNavigator escribe la URL en W (stdout si es nil).
type PrintNavigator struct {
	W io.Writer
}

func (p PrintNavigator) Navigate(_ context.Context, url string) error {
	w := p.W
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintf(w, "Abrí esta URL en el navegador para continuar:\n\n  %s\n\n", url)
	return err
}
