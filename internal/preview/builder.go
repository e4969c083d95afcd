package preview

import (
	"strconv"
	"strings"
)

// Buffers holds the three editor source buffers. Empty buffers are valid and
// render a blank body.
type Buffers struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// Options configures document assembly. Build is deterministic: identical
// buffers and options always produce byte-identical output.
type Options struct {
	SessionID     string // wired into the console shim so the bridge can route messages
	BridgeHost    string // ws(s)://host of this server; the session's bridge URL is derived from it
	BridgeURL     string // websocket endpoint for console relay; empty disables socket forwarding
	ResetCSS      bool   // prefix the style block with a minimal reset
	FrameworkCSS  string // optional framework stylesheet URL injected before user CSS
	CaptureErrors bool   // install window.onerror / unhandledrejection forwarding
	ParentOrigin  string // target origin for postMessage; "*" when unset
}

const resetCSS = `*,*::before,*::after{box-sizing:border-box}body{margin:0}`

// consoleShim intercepts console.log/error/warn/info and forwards each call as
// a structured message to the parent document and, when a bridge endpoint is
// configured, over a websocket to the console relay. Non-string arguments are
// JSON-stringified; a value that cannot be serialized (cyclic structures)
// degrades to a generic error message instead of breaking the shim.
const consoleShim = `(function () {
  var SESSION = __SESSION__;
  var BRIDGE = __BRIDGE__;
  var ORIGIN = __ORIGIN__;
  var socket = null;
  if (BRIDGE) {
    try { socket = new WebSocket(BRIDGE); } catch (e) { socket = null; }
  }
  function format(args) {
    var parts = [];
    for (var i = 0; i < args.length; i++) {
      var a = args[i];
      parts.push(typeof a === "string" ? a : JSON.stringify(a));
    }
    return parts.join(" ");
  }
  function send(type, args) {
    var content;
    try {
      content = format(args);
    } catch (e) {
      type = "console-error";
      content = "Failed to serialize console arguments";
    }
    var msg = { type: type, content: content, timestamp: new Date().toISOString(), session: SESSION };
    try { parent.postMessage(msg, ORIGIN); } catch (e) {}
    if (socket && socket.readyState === 1) {
      try { socket.send(JSON.stringify(msg)); } catch (e) {}
    } else if (socket) {
      socket.addEventListener("open", function () {
        try { socket.send(JSON.stringify(msg)); } catch (e) {}
      }, { once: true });
    }
  }
  var native = { log: console.log, error: console.error, warn: console.warn, info: console.info };
  ["log", "error", "warn", "info"].forEach(function (level) {
    console[level] = function () {
      send("console-" + level, arguments);
      native[level].apply(console, arguments);
    };
  });
  window.__nanoSend = send;
})();`

// errorShim forwards uncaught errors and rejected promises the same way the
// console shim forwards console calls.
const errorShim = `(function () {
  window.onerror = function (message, source, line, col) {
    window.__nanoSend("console-error", [String(message) + " (line " + line + ":" + col + ")"]);
    return true;
  };
  window.addEventListener("unhandledrejection", function (ev) {
    var reason = ev.reason;
    var text = reason && reason.message ? reason.message : String(reason);
    window.__nanoSend("console-error", ["Unhandled promise rejection: " + text]);
  });
})();`

// Build assembles a complete, self-contained HTML document from the source
// buffers: user CSS in a style block, the HTML buffer's body content verbatim,
// then a script block carrying the console shim and the user JS wrapped in
// try/catch so a runtime exception in user code cannot crash the shim.
func Build(b Buffers, opts Options) string {
	origin := opts.ParentOrigin
	if origin == "" {
		origin = "*"
	}

	shim := strings.NewReplacer(
		"__SESSION__", strconv.Quote(opts.SessionID),
		"__BRIDGE__", strconv.Quote(opts.BridgeURL),
		"__ORIGIN__", strconv.Quote(origin),
	).Replace(consoleShim)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if opts.FrameworkCSS != "" {
		sb.WriteString("<link rel=\"stylesheet\" href=\"")
		sb.WriteString(opts.FrameworkCSS)
		sb.WriteString("\">\n")
	}
	sb.WriteString("<style>\n")
	if opts.ResetCSS {
		sb.WriteString(resetCSS)
		sb.WriteString("\n")
	}
	sb.WriteString(b.CSS)
	sb.WriteString("\n</style>\n</head>\n<body>\n")
	sb.WriteString(extractBody(b.HTML))
	sb.WriteString("\n<script>\n")
	sb.WriteString(shim)
	sb.WriteString("\n")
	if opts.CaptureErrors {
		sb.WriteString(errorShim)
		sb.WriteString("\n")
	}
	sb.WriteString("try {\n")
	sb.WriteString(b.JS)
	sb.WriteString("\n} catch (err) {\n  console.error(err && err.message ? err.message : String(err));\n}\n")
	sb.WriteString("</script>\n</body>\n</html>\n")
	return sb.String()
}

// extractBody pulls the inner content of a <body> element out of a full HTML
// document. A buffer without a body tag is used as body content unchanged.
// Tag matching folds ASCII case only, so offsets stay valid even when the
// buffer contains runes whose lowercase form has a different byte length.
func extractBody(html string) string {
	open := indexASCIIFold(html, "<body")
	if open == -1 {
		return html
	}
	gt := strings.IndexByte(html[open:], '>')
	if gt == -1 {
		return html
	}
	start := open + gt + 1
	end := indexASCIIFold(html[start:], "</body")
	if end == -1 {
		return html[start:]
	}
	return html[start : start+end]
}

// indexASCIIFold returns the byte offset of the first occurrence of sub in s,
// comparing ASCII letters case-insensitively.
func indexASCIIFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		j := 0
		for j < len(sub) && lowerASCII(s[i+j]) == lowerASCII(sub[j]) {
			j++
		}
		if j == len(sub) {
			return i
		}
	}
	return -1
}

func lowerASCII(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
