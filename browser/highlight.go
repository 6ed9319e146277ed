package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/anxuanzi/domlens/dom"
)

// highlightJS paints the overlay plan into the live page. The container
// is a singleton reused across calls and never removed here; callers
// clean it up when they are done with the page.
const highlightJS = `(payload) => {
	const boxes = JSON.parse(payload);
	let container = document.getElementById("browser-use-highlight-container");
	if (!container) {
		container = document.createElement("div");
		container.id = "browser-use-highlight-container";
		container.style.position = "fixed";
		container.style.left = "0";
		container.style.top = "0";
		container.style.width = "0";
		container.style.height = "0";
		container.style.pointerEvents = "none";
		container.style.zIndex = "2147483647";
		document.body.appendChild(container);
	}
	container.textContent = "";
	for (const box of boxes) {
		const el = document.createElement("div");
		el.className = "browser-use-highlight";
		el.setAttribute("data-highlight-index", String(box.index));
		el.style.position = "fixed";
		el.style.left = box.rect.x + "px";
		el.style.top = box.rect.y + "px";
		el.style.width = box.rect.width + "px";
		el.style.height = box.rect.height + "px";
		el.style.boxSizing = "border-box";
		el.style.pointerEvents = "none";
		if (box.focused) {
			el.style.border = "3px solid #ff5722";
			el.style.background = "rgba(255, 87, 34, 0.22)";
		} else {
			el.style.border = "2px solid #2196f3";
			el.style.background = "rgba(33, 150, 243, 0.08)";
		}
		const label = document.createElement("span");
		label.textContent = String(box.index);
		label.style.position = "absolute";
		label.style.left = "0";
		label.style.top = "-16px";
		label.style.padding = "0 3px";
		label.style.font = "11px monospace";
		label.style.color = "#fff";
		label.style.background = box.focused ? "#ff5722" : "#2196f3";
		el.appendChild(label);
		container.appendChild(el);
	}
	return boxes.length;
}`

// ApplyHighlights injects the result's overlay plan into the page. A
// result with an empty plan is a no-op: the container is only created
// once there is something to paint.
func ApplyHighlights(page *rod.Page, res *dom.Result) error {
	if res == nil || len(res.Overlay) == 0 {
		return nil
	}
	payload, err := json.Marshal(res.Overlay)
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	if _, err := page.Eval(highlightJS, string(payload)); err != nil {
		return fmt.Errorf("inject overlay: %w", err)
	}
	return nil
}
