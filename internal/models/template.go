package models

// Template seeds a fresh editor session with starter buffers for a project kind.
type Template struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	HTML        string `json:"html"`
	CSS         string `json:"css"`
	JS          string `json:"js"`
}

// Templates holds the built-in starter templates, keyed by project kind.
var Templates = map[string]Template{
	"html": {
		Kind:        "html",
		Title:       "Blank Pen",
		Description: "Plain HTML/CSS/JS starting point",
		HTML:        "<h1>Hello, CodeNANO</h1>\n",
		CSS:         "body {\n  font-family: sans-serif;\n}\n",
		JS:          "console.log('ready');\n",
	},
	"react": {
		Kind:        "react",
		Title:       "React Starter",
		Description: "React 18 via UMD builds, rendered into #root",
		HTML:        "<div id=\"root\"></div>\n<script crossorigin src=\"https://unpkg.com/react@18/umd/react.production.min.js\"></script>\n<script crossorigin src=\"https://unpkg.com/react-dom@18/umd/react-dom.production.min.js\"></script>\n",
		CSS:         "#root {\n  padding: 1rem;\n}\n",
		JS:          "const e = React.createElement;\nReactDOM.createRoot(document.getElementById('root')).render(e('h1', null, 'Hello from React'));\n",
	},
	"vue": {
		Kind:        "vue",
		Title:       "Vue Starter",
		Description: "Vue 3 via CDN global build",
		HTML:        "<div id=\"app\">{{ message }}</div>\n<script src=\"https://unpkg.com/vue@3/dist/vue.global.prod.js\"></script>\n",
		CSS:         "#app {\n  padding: 1rem;\n}\n",
		JS:          "Vue.createApp({ data: () => ({ message: 'Hello from Vue' }) }).mount('#app');\n",
	},
	"next": {
		Kind:        "next",
		Title:       "Next.js Sketch",
		Description: "Single-page Next-style component sketch (client rendered)",
		HTML:        "<div id=\"__next\"></div>\n<script crossorigin src=\"https://unpkg.com/react@18/umd/react.production.min.js\"></script>\n<script crossorigin src=\"https://unpkg.com/react-dom@18/umd/react-dom.production.min.js\"></script>\n",
		CSS:         "#__next {\n  padding: 1rem;\n}\n",
		JS:          "function Page() {\n  return React.createElement('main', null, React.createElement('h1', null, 'Next-style page'));\n}\nReactDOM.createRoot(document.getElementById('__next')).render(React.createElement(Page));\n",
	},
	"astro": {
		Kind:        "astro",
		Title:       "Astro Sketch",
		Description: "Static-first markup with an island of interactivity",
		HTML:        "<article>\n  <h1>Astro island demo</h1>\n  <button id=\"counter\">Clicked 0 times</button>\n</article>\n",
		CSS:         "article {\n  max-width: 40rem;\n  margin: 2rem auto;\n}\n",
		JS:          "let n = 0;\nconst btn = document.getElementById('counter');\nbtn.addEventListener('click', () => {\n  btn.textContent = `Clicked ${++n} times`;\n});\n",
	},
	"python": {
		Kind:        "python",
		Title:       "Python (Pyodide)",
		Description: "Python in the browser through Pyodide",
		HTML:        "<pre id=\"out\">loading python...</pre>\n<script src=\"https://cdn.jsdelivr.net/pyodide/v0.26.1/full/pyodide.js\"></script>\n",
		CSS:         "#out {\n  background: #1e1e1e;\n  color: #d4d4d4;\n  padding: 1rem;\n}\n",
		JS:          "loadPyodide().then(py => {\n  const result = py.runPython(\"'hello from python ' + str(2 + 2)\");\n  document.getElementById('out').textContent = result;\n});\n",
	},
	"markdown": {
		Kind:        "markdown",
		Title:       "Markdown Note",
		Description: "Markdown rendered client-side with marked",
		HTML:        "<div id=\"md\"># Hello\n\nWrite *markdown* here.</div>\n<script src=\"https://cdn.jsdelivr.net/npm/marked/marked.min.js\"></script>\n",
		CSS:         "#md {\n  max-width: 42rem;\n  margin: 2rem auto;\n  line-height: 1.6;\n}\n",
		JS:          "const el = document.getElementById('md');\nel.innerHTML = marked.parse(el.textContent);\n",
	},
}
