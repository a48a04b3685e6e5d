/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "context"

type requestContextKey struct{}

// RequestMeta carries caller supplied request data through context so the
// ledger service can attach it to log entries without widening its API.
type RequestMeta struct {
	RequestId string // correlation id from the transport layer
	ActorId   string // authenticated user performing the call, if any
}

// WithRequestMeta attaches request metadata to a context.
func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, requestContextKey{}, meta)
}

// GetRequestMeta retrieves request metadata from context, or nil if absent.
func GetRequestMeta(ctx context.Context) *RequestMeta {
	meta, _ := ctx.Value(requestContextKey{}).(*RequestMeta)
	return meta
}
