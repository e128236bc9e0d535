package server

// indexHTML is the page shell. The 2D view is drawn from /api/layout/2d as
// SVG; the 3D surface is an external collaborator that mounts into #space
// and reads /api/layout/3d and /api/camera itself.
const indexHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.Title}}</title>
    {{if .Description}}<meta name="description" content="{{.Description}}" />{{end}}
    <style>
      body { font-family: system-ui, sans-serif; margin: 0; color: #0f172a; }
      header { display: flex; gap: 1rem; align-items: center; padding: .75rem 1rem; border-bottom: 1px solid #e2e8f0; }
      header h1 { font-size: 1.1rem; margin: 0; flex: 1; }
      #nav button { padding: .3rem .8rem; }
      #nav span { font-variant-numeric: tabular-nums; margin: 0 .5rem; }
      #search { padding: .3rem .5rem; }
      #results { position: absolute; background: #fff; border: 1px solid #e2e8f0; list-style: none; margin: 0; padding: 0; }
      #results li { padding: .25rem .5rem; cursor: pointer; }
      main { display: grid; grid-template-columns: 1fr 1fr; height: calc(100vh - 3.5rem); }
      #diagram { overflow: auto; border-right: 1px solid #e2e8f0; }
      circle { fill: #6366f1; fill-opacity: .85; cursor: grab; }
      circle.focused { fill: #f59e0b; }
      line { stroke: #94a3b8; stroke-linecap: round; }
      text { font-size: 12px; text-anchor: middle; pointer-events: none; }
    </style>
  </head>
  <body data-order="{{.Order}}">
    <header>
      <h1>{{.Title}}</h1>
      <div>
        <input id="search" type="search" placeholder="Search nodes" autocomplete="off" />
        <ul id="results"></ul>
      </div>
      <div id="nav">
        <button id="prev" type="button">Previous</button>
        <span id="position"></span>
        <button id="next" type="button">Next</button>
        <small id="upcoming"></small>
      </div>
    </header>
    <main>
      <section id="diagram"><svg id="flat" xmlns="http://www.w3.org/2000/svg"></svg></section>
      <section id="space"></section>
    </main>
    <script>
      const NS = "http://www.w3.org/2000/svg";
      const svg = document.getElementById("flat");
      let diagram = { nodes: [], edges: [] };
      let focus = { has_focus: false, label: "" };

      const post = (path, body) =>
        fetch(path, { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify(body || {}) })
          .then(r => r.json());

      function draw() {
        svg.setAttribute("width", diagram.width);
        svg.setAttribute("height", diagram.height);
        svg.replaceChildren();
        const byId = Object.fromEntries(diagram.nodes.map(n => [n.id, n]));
        for (const e of diagram.edges) {
          const s = byId[e.source], t = byId[e.target];
          const l = document.createElementNS(NS, "line");
          l.setAttribute("x1", s.position.x); l.setAttribute("y1", s.position.y);
          l.setAttribute("x2", t.position.x); l.setAttribute("y2", t.position.y);
          l.setAttribute("stroke-width", e.strokeWidth);
          svg.appendChild(l);
        }
        for (const n of diagram.nodes) {
          const c = document.createElementNS(NS, "circle");
          c.setAttribute("cx", n.position.x); c.setAttribute("cy", n.position.y);
          c.setAttribute("r", n.data.radius);
          if (focus.has_focus && focus.label === n.data.label) c.classList.add("focused");
          c.addEventListener("click", () => post("/api/click", { view: "view-2d", id: n.id }));
          drag(c, n);
          svg.appendChild(c);
          const t = document.createElementNS(NS, "text");
          t.setAttribute("x", n.position.x); t.setAttribute("y", n.position.y + n.data.radius + 14);
          t.textContent = n.data.label;
          svg.appendChild(t);
        }
      }

      function drag(el, node) {
        el.addEventListener("pointerdown", ev => {
          const start = { x: ev.clientX, y: ev.clientY }, origin = { ...node.position };
          let moved = false;
          const move = e => {
            moved = true;
            node.position = { x: origin.x + e.clientX - start.x, y: origin.y + e.clientY - start.y };
            el.setAttribute("cx", node.position.x); el.setAttribute("cy", node.position.y);
          };
          const up = () => {
            window.removeEventListener("pointermove", move);
            window.removeEventListener("pointerup", up);
            if (moved) post("/api/drag", { id: node.id, x: node.position.x, y: node.position.y, end: true })
              .then(r => { diagram = r.layout; draw(); });
          };
          window.addEventListener("pointermove", move);
          window.addEventListener("pointerup", up);
        });
      }

      function showNav(nav) {
        document.getElementById("nav").hidden = !nav.enabled;
        document.getElementById("position").textContent = nav.position;
        document.getElementById("upcoming").textContent = nav.next ? "next: " + nav.next : "";
        document.getElementById("prev").disabled = !nav.can_previous;
      }

      function reload() {
        fetch("/api/layout/2d").then(r => r.json()).then(d => { diagram = d; draw(); });
      }

      document.getElementById("next").onclick = () => post("/api/nav/next");
      document.getElementById("prev").onclick = () => post("/api/nav/prev");

      const results = document.getElementById("results");
      document.getElementById("search").addEventListener("input", ev => {
        fetch("/api/search?limit=8&q=" + encodeURIComponent(ev.target.value)).then(r => r.json()).then(ms => {
          results.replaceChildren(...ms.map(m => {
            const li = document.createElement("li");
            li.textContent = m.label;
            li.onclick = () => { post("/api/focus", { label: m.label, source: "view-2d" }); results.replaceChildren(); };
            return li;
          }));
        });
      });

      let order = [];
      function connect() {
        const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
        ws.onmessage = ev => {
          const msg = JSON.parse(ev.data);
          const next = (msg.focus.order || []).join("\n");
          focus = msg.focus;
          showNav(msg.navigation);
          if (next !== order) { order = next; reload(); } else { draw(); }
        };
        ws.onclose = () => setTimeout(connect, 1000);
      }
      connect();
    </script>
  </body>
</html>
`
