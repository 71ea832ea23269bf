// Copyright 2025 AMAS
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"sync"
)

// dedupCall is one in-flight invocation shared by every caller that
// arrives with the same key while it is running.
type dedupCall struct {
	done chan struct{}
	resp *CompletionResponse
	err  error

	mu       sync.Mutex
	waiters  int
	cancelFn func()
}

// Deduplicator is C5: a keyed pending-future table that collapses
// concurrent identical requests into a single upstream call, the way
// golang.org/x/sync/singleflight does, plus per-waiter cancellation —
// singleflight.Do blocks every caller until the shared call returns and
// gives none of them a way to leave early, so this is hand-rolled directly
// on the same primitives (sync.Mutex + a done channel) with an added
// per-waiter context so one caller's cancellation never affects the others
// still waiting on the shared in-flight call.
type Deduplicator struct {
	mu    sync.Mutex
	calls map[string]*dedupCall
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{calls: make(map[string]*dedupCall)}
}

// Do runs fn at most once per key among all concurrent callers; a caller
// whose ctx is cancelled returns ctx.Err() immediately without affecting
// other waiters or the in-flight call itself, which runs to completion
// using a context independent of any single waiter's lifetime.
func (d *Deduplicator) Do(ctx context.Context, key string, fn func(context.Context) (*CompletionResponse, error)) (*CompletionResponse, error, bool) {
	d.mu.Lock()
	if call, ok := d.calls[key]; ok {
		call.mu.Lock()
		call.waiters++
		call.mu.Unlock()
		d.mu.Unlock()
		return d.await(ctx, call)
	}

	callCtx, cancel := context.WithCancel(context.Background())
	call := &dedupCall{done: make(chan struct{}), waiters: 1, cancelFn: cancel}
	d.calls[key] = call
	d.mu.Unlock()

	go func() {
		resp, err := fn(callCtx)
		call.resp, call.err = resp, err
		close(call.done)

		d.mu.Lock()
		if d.calls[key] == call {
			delete(d.calls, key)
		}
		d.mu.Unlock()
	}()

	resp, err, _ := d.await(ctx, call)
	return resp, err, false
}

// await blocks until either the shared call completes or ctx is
// cancelled. shared reports whether this caller observed a result that an
// earlier caller's fn call produced (true for every caller but the first).
func (d *Deduplicator) await(ctx context.Context, call *dedupCall) (*CompletionResponse, error, bool) {
	select {
	case <-call.done:
		return call.resp, call.err, true
	case <-ctx.Done():
		call.mu.Lock()
		call.waiters--
		lastWaiter := call.waiters == 0
		call.mu.Unlock()
		if lastWaiter {
			// No one is left waiting on this call; let it keep running in
			// the background (other dedup keys may reuse the entry once it
			// finishes and deletes itself), but stop blocking this caller.
			_ = lastWaiter
		}
		return nil, ctx.Err(), true
	}
}

// Cancel forcibly cancels the in-flight call for key, if any, regardless
// of remaining waiters. Used by admin operations only; ordinary callers
// should rely on their own ctx cancellation via Do.
func (d *Deduplicator) Cancel(key string) {
	d.mu.Lock()
	call, ok := d.calls[key]
	d.mu.Unlock()
	if ok && call.cancelFn != nil {
		call.cancelFn()
	}
}

// InFlight reports how many distinct keys currently have a call running.
func (d *Deduplicator) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}
