package dashboard

// dataPlaceholder is swapped for an inline JSON payload when the page is
// rendered as a static report; the served page leaves it null and polls the
// stats endpoint instead.
const dataPlaceholder = "__PRELOADED__"

const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Scraper Performance Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #62946050; color: #243119; min-height: 100vh; }
        .header { padding: 1.5rem 2rem; }
        .header h1 { font-size: 2rem; color: #243119; }
        .kpis { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 1rem; padding: 0 2rem; }
        .card { background: #629460; border-radius: 12px; padding: 1.5rem; text-align: center; }
        .card .value { font-size: 2.5rem; font-weight: 700; color: #243119; }
        .card .sub { font-size: 1rem; color: #243119; margin-top: 0.25rem; }
        .chart-box { margin: 2rem; background: #fff8; border-radius: 12px; padding: 1.5rem; }
        .chart-box h2 { font-size: 1.1rem; margin-bottom: 1rem; }
        svg { width: 100%; height: 280px; }
        .footer { text-align: center; padding: 1rem; font-size: 0.75rem; color: #243119; }
    </style>
</head>
<body>
    <div class="header"><h1>Scraper Performance Report</h1></div>
    <div class="kpis" id="kpis"></div>
    <div class="chart-box">
        <h2>Total bytes in per second</h2>
        <svg id="chart" viewBox="0 0 1000 280" preserveAspectRatio="none"></svg>
    </div>
    <div class="footer" id="footer"></div>
    <script>
        const preloaded = __PRELOADED__;

        function render(d) {
            const kpis = document.getElementById('kpis');
            kpis.innerHTML = '';
            (d.kpis || []).forEach(k => {
                const card = document.createElement('div');
                card.className = 'card';
                card.innerHTML = '<div class="value"></div><div class="sub"></div>';
                card.querySelector('.value').textContent = k.value;
                card.querySelector('.sub').textContent = k.subtext;
                kpis.appendChild(card);
            });

            const ts = d.timeseries || [];
            const svg = document.getElementById('chart');
            svg.innerHTML = '';
            if (ts.length > 0) {
                const maxBytes = Math.max(...ts.map(b => b.bytes), 1);
                const stepX = 1000 / Math.max(ts.length - 1, 1);
                const points = ts.map((b, i) =>
                    (i * stepX) + ',' + (270 - (b.bytes / maxBytes) * 250)).join(' ');
                const line = document.createElementNS('http://www.w3.org/2000/svg', 'polyline');
                line.setAttribute('points', points);
                line.setAttribute('fill', 'none');
                line.setAttribute('stroke', '#243119');
                line.setAttribute('stroke-width', '3');
                svg.appendChild(line);
            }
            document.getElementById('footer').textContent = 'Generated at ' + (d.timestamp || '');
        }

        async function refresh() {
            try {
                const r = await fetch('/api/stats');
                render(await r.json());
            } catch (e) {}
        }

        if (preloaded) {
            render(preloaded);
        } else {
            refresh();
            setInterval(refresh, 2000);
        }
    </script>
</body>
</html>`
