package server

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

const reloadScript = `<script>
(function () {
  var retry = 1000;
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + %q);
    ws.onopen = function () { retry = 1000; };
    ws.onmessage = function (event) {
      try {
        var msg = JSON.parse(event.data);
        if (msg.type === "reload") { location.reload(); }
      } catch (e) {}
    };
    ws.onclose = function () {
      setTimeout(connect, retry);
      retry = Math.min(retry * 2, 10000);
    };
  }
  connect();
})();
</script>
`

// ReloadScript returns the client snippet that listens on reloadPath.
func ReloadScript(reloadPath string) []byte {
	return []byte(fmt.Sprintf(reloadScript, reloadPath))
}

// InjectScript inserts script before the last </body> end tag of doc, or
// appends it when the document has no body end tag.
func InjectScript(doc, script []byte) []byte {
	offset := lastBodyEnd(doc)
	out := make([]byte, 0, len(doc)+len(script))
	if offset < 0 {
		out = append(out, doc...)
		return append(out, script...)
	}
	out = append(out, doc[:offset]...)
	out = append(out, script...)
	return append(out, doc[offset:]...)
}

// lastBodyEnd returns the byte offset of the last </body> tag, or -1.
func lastBodyEnd(doc []byte) int {
	z := html.NewTokenizer(bytes.NewReader(doc))
	pos, found := 0, -1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return -1
			}
			return found
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				found = pos
			}
		}
		pos += raw
	}
}
