package server

import (
	"context"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

type shopContextKey struct{}
type shopContext struct {
	shop string
}

type traceContextKey struct{}
type traceContext struct {
	traceID string
}

func setShopContext(ctx context.Context, sc shopContext) context.Context {
	return context.WithValue(ctx, shopContextKey{}, sc)
}
func getShopContext(ctx context.Context) (shopContext, bool) {
	sc, ok := ctx.Value(shopContextKey{}).(shopContext)
	return sc, ok
}

func setTraceContext(ctx context.Context, tc traceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}
func getTraceContext(ctx context.Context) traceContext {
	tc, _ := ctx.Value(traceContextKey{}).(traceContext)
	return tc
}

func (s Server) maxBytesMw(next http.Handler) http.Handler {
	return http.MaxBytesHandler(next, 8000)
}

func (s Server) loggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := uuid.NewString()
		s.Logger.Debugf("loggingMw: New incoming request %s %s from %s, UA: %s, Host: %#v, TraceID: %s",
			r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent(), r.Host, traceID)

		defer func() {
			if re := recover(); re != nil {
				s.Logger.Errorf("loggingMw: Handler crashed, err: %v, TraceID: %s, stack trace:\n%s", re, traceID, debug.Stack())
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		tc := traceContext{traceID: traceID}
		next.ServeHTTP(w, r.WithContext(setTraceContext(r.Context(), tc)))

		s.Logger.Debugf("loggingMw: Incoming request %s %s took %dms, TraceID: %s",
			r.Method, r.URL.Path, time.Since(start).Milliseconds(), traceID)
	})
}

// authMw verifies the merchant session token. Tokens are issued by the
// commerce platform's embedded-app handshake, this server only validates the
// signature and reads the shop domain from the subject claim.
func (s Server) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		st := r.Header.Get("Authorization")
		if strings.HasPrefix(st, "Bearer ") {
			st = strings.TrimPrefix(st, "Bearer ")
			token, err := jwt.Parse([]byte(st), jwt.WithKey(jwa.HS256, s.AuthSecretKey), jwt.WithValidate(true))
			if err != nil {
				s.Logger.Debugf("authMw: Failed to validate session token, err: %v, TraceID: %s", err, tid)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			shop := token.Subject()
			if shop == "" {
				s.Logger.Errorf("authMw: Valid session token has an empty subject, TraceID: %s", tid)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			s.Logger.Debugf("authMw: Authenticated shop: %s, TraceID: %s", shop, tid)
			next.ServeHTTP(w, r.WithContext(setShopContext(r.Context(), shopContext{shop: shop})))
			return
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}
