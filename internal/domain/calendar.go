package domain

import "time"

// calendar.go — aritmética de días hábiles (lunes a viernes).
//
// No modela festivos: la serie de precios ya trae solo días de mercado, así que el
// calendario solo se usa para (a) fechar órdenes LIVE más allá del final de la serie y
// (b) contar el holding period de un trade sin contar fines de semana.

// DateLayout es el formato de fecha de todos los artefactos tabulares.
const DateLayout = "2006-01-02"

// Date construye una fecha a medianoche UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateDay normaliza t a medianoche UTC conservando el día de calendario.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parsea una fecha ISO (YYYY-MM-DD) o RFC3339 y la normaliza a medianoche UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateDay(t), nil
}

// FormatDate formatea t como YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsBusinessDay reporta si t cae de lunes a viernes.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay devuelve el primer día hábil estrictamente posterior a t.
func NextBusinessDay(t time.Time) time.Time {
	next := TruncateDay(t).AddDate(0, 0, 1)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// BusinessDaysInclusive cuenta los días hábiles en [from, to], ambos incluidos.
// Devuelve 0 si to es anterior a from.
func BusinessDaysInclusive(from, to time.Time) int {
	from, to = TruncateDay(from), TruncateDay(to)
	if to.Before(from) {
		return 0
	}

	days := int(to.Sub(from).Hours()/24) + 1
	n := (days / 7) * 5

	// Resto de la última semana incompleta
	d := from.AddDate(0, 0, (days/7)*7)
	for ; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			n++
		}
	}
	return n
}

// BusinessDaysBetween cuenta los días hábiles estrictamente entre from y to.
func BusinessDaysBetween(from, to time.Time) int {
	n := BusinessDaysInclusive(from, to)
	if n == 0 {
		return 0
	}
	if IsBusinessDay(from) {
		n--
	}
	if IsBusinessDay(to) && !TruncateDay(to).Equal(TruncateDay(from)) {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}
